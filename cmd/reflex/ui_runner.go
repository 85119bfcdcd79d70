package main

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"reflex/internal/gen"
	"reflex/internal/ui"
)

// runGenWithUI runs the generator in the background and draws its events
// until the run finishes. Closing the view early does not stop the run.
func runGenWithUI(ctx context.Context, title string, req *gen.Request) (*gen.Result, error) {
	if req == nil {
		return nil, errors.New("missing gen request")
	}
	events := make(chan gen.Event, 256)
	type outcome struct {
		res *gen.Result
		err error
	}
	finished := make(chan outcome, 1)

	run := *req
	run.Progress = gen.MultiSink{req.Progress, gen.ChannelSink{Ch: events}}
	go func() {
		defer close(events)
		res, err := gen.Run(ctx, &run)
		finished <- outcome{res, err}
	}()

	_, uiErr := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(os.Stdout)).Run()
	// The view may have quit before the run; keep the sink from blocking.
	for range events {
	}
	out := <-finished
	if uiErr != nil {
		return out.res, uiErr
	}
	return out.res, out.err
}
