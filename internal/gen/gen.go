// Package gen implements `reflex gen`: it loads Go packages, reads
// //reflex: directives and writes one file per package whose init function
// registers the annotated types with typed options.
package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"reflex/internal/diag"
	"reflex/internal/trace"
)

// DefaultOutput is the file name generated in each package directory.
const DefaultOutput = "reflex_gen.go"

const maxDiagnostics = 200

const (
	listMode = packages.NeedName | packages.NeedFiles
	fullMode = listMode | packages.NeedImports | packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo
)

// Request configures one generator run.
type Request struct {
	Dir      string
	Patterns []string
	Output   string
	Jobs     int
	Options  Options
	// Cache is optional; nil disables it.
	Cache *Cache
	// DryRun renders sources without touching the package directories.
	DryRun   bool
	Reporter diag.Reporter
	Progress ProgressSink
}

// PackageResult describes what happened to one package.
type PackageResult struct {
	PkgPath string
	Dir     string
	Output  string
	Types   []string
	Source  []byte
	Cached  bool
	Written bool
	Removed bool
	Failed  bool
}

// Result collects package results sorted by import path.
type Result struct {
	Packages []PackageResult
}

// Failed reports whether any package failed.
func (r *Result) Failed() bool {
	for _, p := range r.Packages {
		if p.Failed {
			return true
		}
	}
	return false
}

type unit struct {
	listed *packages.Package
	result PackageResult
	bag    *diag.Bag
	key    Digest
	keyed  bool
}

// Run generates registration files for the packages matched by the request
// patterns. Package problems are reported as diagnostics; the error result
// is reserved for failures of the run itself.
func Run(ctx context.Context, req *Request) (*Result, error) {
	if req.Output == "" {
		req.Output = DefaultOutput
	}
	patterns := req.Patterns
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "gen")
	span.Set("patterns", strings.Join(patterns, " "))

	start := time.Now()
	emit(req.Progress, "", StageLoad, StatusWorking, nil, 0)
	listed, err := packages.Load(&packages.Config{Context: ctx, Dir: req.Dir, Mode: listMode}, patterns...)
	if err != nil {
		emit(req.Progress, "", StageLoad, StatusError, err, time.Since(start))
		span.Fail(err)
		return nil, fmt.Errorf("gen: load %s: %w", strings.Join(patterns, " "), err)
	}
	emit(req.Progress, "", StageLoad, StatusDone, nil, time.Since(start))

	units := make([]*unit, len(listed))
	for i, lp := range listed {
		units[i] = &unit{listed: lp, result: PackageResult{PkgPath: lp.PkgPath}, bag: diag.NewBag(maxDiagnostics)}
		emit(req.Progress, lp.PkgPath, StageLoad, StatusQueued, nil, 0)
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var (
		mu      sync.Mutex
		pending []*unit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !probe(req, u) {
				mu.Lock()
				pending = append(pending, u)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.Fail(err)
		return nil, err
	}

	if len(pending) > 0 {
		if err := generate(ctx, req, pending, jobs); err != nil {
			span.Fail(err)
			return nil, err
		}
	}

	res := &Result{Packages: make([]PackageResult, 0, len(units))}
	slices.SortFunc(units, func(a, b *unit) int { return strings.Compare(a.result.PkgPath, b.result.PkgPath) })
	for _, u := range units {
		res.Packages = append(res.Packages, u.result)
		if req.Reporter != nil {
			u.bag.Sort()
			for _, d := range u.bag.Items() {
				req.Reporter.Report(d)
			}
		}
	}
	span.Set("packages", strconv.Itoa(len(units))).End("")
	return res, nil
}

// probe resolves a unit from the listing and the cache alone. It reports
// false when the unit needs a full load.
func probe(req *Request, u *unit) bool {
	lp := u.listed
	reporter := &diag.BagReporter{Bag: u.bag}
	if len(lp.Errors) > 0 {
		reportLoadErrors(reporter, lp.Errors, "")
		u.result.Failed = true
		emit(req.Progress, lp.PkgPath, StageLoad, StatusError, errors.New(lp.Errors[0].Msg), 0)
		return true
	}
	if len(lp.GoFiles) == 0 {
		emit(req.Progress, lp.PkgPath, StageLoad, StatusSkipped, nil, 0)
		return true
	}
	u.result.Dir = filepath.Dir(lp.GoFiles[0])
	u.result.Output = filepath.Join(u.result.Dir, req.Output)

	if req.Cache == nil || req.DryRun {
		return false
	}
	key, err := KeyFor(lp.PkgPath, sources(lp.GoFiles, u.result.Output), req.Output, req.Options)
	if err != nil {
		diag.ReportWarning(reporter, diag.IOCache, token.Position{Filename: u.result.Dir}, "cache key: "+err.Error()).Emit()
		return false
	}
	u.key, u.keyed = key, true
	entry, ok, err := req.Cache.Get(key)
	if err != nil {
		diag.ReportWarning(reporter, diag.IOCache, token.Position{Filename: u.result.Dir}, "cache read: "+err.Error()).Emit()
		return false
	}
	if !ok {
		return false
	}
	for _, d := range restoreDiags(entry.Diags) {
		u.bag.Add(d)
	}
	u.result.Cached = true
	u.result.Types = entry.Types
	u.result.Source = entry.Source
	write(req, u, reporter)
	if !u.result.Failed {
		emit(req.Progress, lp.PkgPath, StageWrite, StatusCached, nil, 0)
	}
	return true
}

// generate type-checks the pending units in one load and plans them in
// parallel.
func generate(ctx context.Context, req *Request, pending []*unit, jobs int) error {
	paths := make([]string, len(pending))
	for i, u := range pending {
		paths[i] = u.result.PkgPath
		emit(req.Progress, u.result.PkgPath, StageLoad, StatusWorking, nil, 0)
	}
	emit(req.Progress, "", StageLoad, StatusWorking, nil, 0)
	start := time.Now()
	loaded, err := packages.Load(&packages.Config{Context: ctx, Dir: req.Dir, Mode: fullMode}, paths...)
	if err != nil {
		emit(req.Progress, "", StageLoad, StatusError, err, time.Since(start))
		return fmt.Errorf("gen: load: %w", err)
	}
	byPath := make(map[string]*packages.Package, len(loaded))
	for _, pkg := range loaded {
		byPath[pkg.PkgPath] = pkg
	}
	elapsed := time.Since(start)
	emit(req.Progress, "", StageLoad, StatusDone, nil, elapsed)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(pending)))
	for _, u := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pkg, ok := byPath[u.result.PkgPath]
			if !ok {
				diag.ReportError(&diag.BagReporter{Bag: u.bag}, diag.LoadPackage,
					token.Position{Filename: u.result.Dir}, "package "+u.result.PkgPath+" vanished between loads").Emit()
				u.result.Failed = true
				emit(req.Progress, u.result.PkgPath, StageLoad, StatusError, nil, elapsed)
				return nil
			}
			emit(req.Progress, u.result.PkgPath, StageLoad, StatusDone, nil, elapsed)
			process(gctx, req, u, pkg)
			return nil
		})
	}
	return g.Wait()
}

func process(ctx context.Context, req *Request, u *unit, pkg *packages.Package) {
	_, span := trace.StartSpan(ctx, trace.ScopePackage, pkg.PkgPath)
	defer span.End("")

	reporter := &diag.BagReporter{Bag: u.bag}
	fail := func(stage Stage, err error) {
		u.result.Failed = true
		emit(req.Progress, pkg.PkgPath, stage, StatusError, err, 0)
		span.Fail(err)
	}

	reportLoadErrors(reporter, pkg.Errors, u.result.Output)
	if u.bag.HasErrors() || pkg.Types == nil {
		fail(StageLoad, errors.New("package does not type-check"))
		return
	}

	start := time.Now()
	emit(req.Progress, pkg.PkgPath, StagePlan, StatusWorking, nil, 0)
	files := make([]*ast.File, 0, len(pkg.Syntax))
	for _, f := range pkg.Syntax {
		if pkg.Fset.Position(f.Package).Filename == u.result.Output {
			continue
		}
		files = append(files, f)
	}
	plan := BuildPlan(pkg.Fset, pkg.Types, files, req.Options, reporter)
	if u.bag.HasErrors() {
		fail(StagePlan, errors.New("directive errors"))
		return
	}
	emit(req.Progress, pkg.PkgPath, StagePlan, StatusDone, nil, time.Since(start))
	for _, tp := range plan.Types {
		u.result.Types = append(u.result.Types, tp.Name)
	}

	if len(plan.Types) > 0 {
		start = time.Now()
		emit(req.Progress, pkg.PkgPath, StageEmit, StatusWorking, nil, 0)
		src, err := Emit(plan, u.result.Output)
		if err != nil {
			diag.ReportError(reporter, diag.IOFormat, token.Position{Filename: u.result.Output}, err.Error()).Emit()
			fail(StageEmit, err)
			return
		}
		u.result.Source = src
		emit(req.Progress, pkg.PkgPath, StageEmit, StatusDone, nil, time.Since(start))
	}

	write(req, u, reporter)
	if u.result.Failed || req.DryRun || !u.keyed {
		return
	}
	entry := &Entry{
		PkgPath: pkg.PkgPath,
		Types:   u.result.Types,
		Empty:   len(u.result.Source) == 0,
		Source:  u.result.Source,
		Diags:   cacheDiags(u.bag.Items()),
	}
	if err := req.Cache.Put(u.key, entry); err != nil {
		diag.ReportWarning(reporter, diag.IOCache, token.Position{Filename: u.result.Dir}, "cache write: "+err.Error()).Emit()
	}
}

// write brings the output file in line with the unit source. An empty
// source removes a previously generated file; files without the generated
// header are never touched.
func write(req *Request, u *unit, reporter diag.Reporter) {
	if req.DryRun {
		return
	}
	start := time.Now()
	path := u.result.Output
	pos := token.Position{Filename: path}
	existing, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		diag.ReportError(reporter, diag.IOWriteFile, pos, err.Error()).Emit()
		u.result.Failed = true
		return
	}
	if exists && !IsGenerated(existing) {
		diag.ReportError(reporter, diag.IOWriteFile, pos, "file exists and was not generated by reflex").Emit()
		u.result.Failed = true
		emit(req.Progress, u.result.PkgPath, StageWrite, StatusError, nil, 0)
		return
	}

	switch {
	case len(u.result.Source) == 0 && exists:
		if err := os.Remove(path); err != nil {
			diag.ReportError(reporter, diag.IOWriteFile, pos, err.Error()).Emit()
			u.result.Failed = true
			return
		}
		u.result.Removed = true
	case len(u.result.Source) == 0, bytes.Equal(existing, u.result.Source):
	default:
		if err := os.WriteFile(path, u.result.Source, 0o644); err != nil {
			diag.ReportError(reporter, diag.IOWriteFile, pos, err.Error()).Emit()
			u.result.Failed = true
			emit(req.Progress, u.result.PkgPath, StageWrite, StatusError, err, 0)
			return
		}
		u.result.Written = true
	}
	if !u.result.Cached {
		emit(req.Progress, u.result.PkgPath, StageWrite, StatusDone, nil, time.Since(start))
	}
}

// sources drops the generated output from the package files.
func sources(files []string, output string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f != output {
			out = append(out, f)
		}
	}
	return out
}

// reportLoadErrors turns loader errors into diagnostics. Errors inside the
// stale generated file are ignored; it is about to be replaced.
func reportLoadErrors(r diag.Reporter, errs []packages.Error, output string) {
	for _, e := range errs {
		pos := errorPosition(e.Pos)
		if output != "" && pos.Filename == output {
			continue
		}
		code := diag.LoadPackage
		if e.Kind == packages.TypeError {
			code = diag.LoadTypeErrors
		}
		diag.ReportError(r, code, pos, e.Msg).Emit()
	}
}

// errorPosition parses the "file:line:col" form used by packages.Error.
func errorPosition(pos string) token.Position {
	if pos == "" || pos == "-" {
		return token.Position{}
	}
	rest := pos
	var nums []int
	for range 2 {
		i := strings.LastIndexByte(rest, ':')
		if i < 0 {
			break
		}
		n, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			break
		}
		nums = append(nums, n)
		rest = rest[:i]
	}
	switch len(nums) {
	case 2:
		return diagPosition(rest, nums[1], nums[0])
	case 1:
		return diagPosition(rest, nums[0], 0)
	}
	return token.Position{Filename: pos}
}

func diagPosition(file string, line, col int) token.Position {
	return token.Position{Filename: file, Line: line, Column: col}
}
