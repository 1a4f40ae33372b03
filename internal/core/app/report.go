package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"time"

	"bindsig/internal/core/errors"
	"bindsig/internal/data/history"
	"bindsig/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Report is the outcome of one run over a source.
type Report struct {
	RunID     string
	Source    string
	StartedAt time.Time
	Results   []Result
	// Recorded is true when the run was persisted to history.
	Recorded bool
}

// Failures counts failed declarations.
func (r *Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if !res.Diagnostic.Success {
			n++
		}
	}
	return n
}

// OK reports whether every declaration succeeded.
func (r *Report) OK() bool {
	return r.Failures() == 0
}

// CheckAll checks decls in order, throttled by the configured limiter, and
// records the run when history is enabled.
func (c *Checker) CheckAll(ctx context.Context, source string, decls []Declaration) (*Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "checker.CheckAll",
		trace.WithAttributes(attribute.String("source", source), attribute.Int("declarations", len(decls))))
	defer span.End()

	report := &Report{
		RunID:     uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC(),
		Results:   make([]Result, 0, len(decls)),
	}
	for _, decl := range decls {
		if err := c.limiter.Wait(ctx, 1); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeRateLimited, "check rate limit exceeded"),
				errors.CtxLine, decl.Line)
		}
		report.Results = append(report.Results, c.CheckDeclaration(ctx, decl))
	}
	span.SetAttributes(attribute.Int("failures", report.Failures()))

	c.recordRun(report)
	return report, nil
}

// CheckFile reads and checks a declaration file.
func (c *Checker) CheckFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		code := errors.CodeInternal
		if stderrors.Is(err, os.ErrNotExist) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "open declaration file"), errors.CtxPath, path)
	}
	defer f.Close()

	decls, err := ParseDeclarations(f)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read declaration file"), errors.CtxPath, path)
	}
	observability.FilesCheckedTotal.Inc()

	report, err := c.CheckAll(ctx, path, decls)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return report, nil
}

func (c *Checker) recordRun(report *Report) {
	if c.store == nil {
		return
	}
	run := history.Run{
		ID:           report.RunID,
		Source:       report.Source,
		StartedAt:    report.StartedAt,
		Declarations: len(report.Results),
		Failures:     report.Failures(),
	}
	results := make([]history.Result, 0, len(report.Results))
	for _, res := range report.Results {
		results = append(results, history.Result{
			RunID:   report.RunID,
			Line:    res.Line,
			Kind:    string(res.Kind),
			Text:    res.Text,
			Success: res.Diagnostic.Success,
			Message: res.Diagnostic.Message,
			Index:   res.Diagnostic.Index,
		})
	}
	if err := c.store.SaveRun(run, results); err != nil {
		observability.HistoryWriteErrorsTotal.Inc()
		slog.Warn("failed to record check run", "path", report.Source, "error", err)
		return
	}
	report.Recorded = true
}

// History returns the most recent recorded runs.
func (c *Checker) History(limit int) ([]history.Run, error) {
	if c.store == nil {
		return nil, errors.New(errors.CodeNotSupported, "history is disabled; set db.enabled = true")
	}
	runs, err := c.store.LoadRuns(limit)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "load history"), errors.CtxOperation, "load_runs")
	}
	return runs, nil
}

// RunResults returns the per-declaration results of a recorded run.
func (c *Checker) RunResults(runID string) ([]history.Result, error) {
	if c.store == nil {
		return nil, errors.New(errors.CodeNotSupported, "history is disabled; set db.enabled = true")
	}
	results, err := c.store.LoadResults(runID)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "load run results"), errors.CtxOperation, "load_results")
	}
	if len(results) == 0 {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "run has no recorded results"), "run_id", runID)
	}
	return results, nil
}
