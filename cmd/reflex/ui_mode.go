package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the value of gen --ui.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	m := uiMode(strings.ToLower(strings.TrimSpace(value)))
	switch m {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return m, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI decides whether gen draws the progress view. Auto draws it
// on a terminal, except for dry runs, whose source goes to stdout.
func shouldUseTUI(mode uiMode, dryRun bool) bool {
	if mode != uiModeAuto {
		return mode == uiModeOn
	}
	return !dryRun && isTerminal(os.Stdout)
}
