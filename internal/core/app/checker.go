// Package app wires the parsers, the expression oracle and the ambient stack
// into the check service used by the command line.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"bindsig/internal/core/config"
	"bindsig/internal/core/errors"
	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/inherit"
	"bindsig/internal/engine/names"
	"bindsig/internal/engine/oracle"
	"bindsig/internal/engine/signature"
	"bindsig/internal/shared/observability"
	"bindsig/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Checker validates call signatures and inheritance lists. It is safe for
// concurrent use.
type Checker struct {
	cfg     *config.Config
	oracle  ports.ExpressionOracle
	calls   *signature.Parser
	lists   *inherit.Parser
	limiter *util.Limiter
	store   ports.HistoryStore
}

// NewChecker builds a checker from cfg. store may be nil, in which case runs
// are not recorded.
func NewChecker(cfg *config.Config, store ports.HistoryStore) (*Checker, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	o, err := oracle.New(oracle.Options{
		Backend:    cfg.Oracle.Backend,
		Serialize:  cfg.Oracle.SerializeCalls(),
		CacheSize:  cfg.Oracle.CacheSize,
		Instrument: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotSupported, "build expression oracle")
	}
	return newChecker(cfg, o, store), nil
}

func newChecker(cfg *config.Config, o ports.ExpressionOracle, store ports.HistoryStore) *Checker {
	ids := names.Identifiers{}
	types := names.TypeNames{}
	return &Checker{
		cfg:     cfg,
		oracle:  o,
		calls:   signature.NewParser(ids, types, o),
		lists:   inherit.NewParser(ids, types),
		limiter: util.NewLimiter(cfg.Limits.ChecksPerSecond, cfg.Limits.Burst),
		store:   store,
	}
}

// Config returns the configuration the checker was built from.
func (c *Checker) Config() *config.Config {
	return c.cfg
}

// CheckCallSignature parses a call signature. A parse failure is returned as
// a SYNTAX_ERROR DomainError wrapping the *diag.Error.
func (c *Checker) CheckCallSignature(ctx context.Context, text string) (*signature.CallSignature, error) {
	_, span := observability.Tracer.Start(ctx, "checker.CheckCallSignature",
		trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()

	sig, err := c.parseCall(text)
	if err != nil {
		return nil, syntaxError(err, KindCall)
	}
	return sig, nil
}

// CheckInheritanceList parses an inheritance list with where clauses.
func (c *Checker) CheckInheritanceList(ctx context.Context, text string) (*inherit.InheritanceList, error) {
	_, span := observability.Tracer.Start(ctx, "checker.CheckInheritanceList",
		trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()

	list, err := c.parseInherit(text)
	if err != nil {
		return nil, syntaxError(err, KindInherit)
	}
	return list, nil
}

// CheckDeclaration checks one declaration and never fails: parse errors are
// carried in the result's diagnostic.
func (c *Checker) CheckDeclaration(ctx context.Context, decl Declaration) Result {
	_, span := observability.Tracer.Start(ctx, "checker.CheckDeclaration",
		trace.WithAttributes(attribute.String("kind", string(decl.Kind)), attribute.Int("line", decl.Line)))
	defer span.End()

	res := Result{Declaration: decl}
	switch decl.Kind {
	case KindCall:
		sig, err := c.parseCall(decl.Text)
		res.Diagnostic = diag.FromError(err)
		res.Signature = sig
	case KindInherit:
		list, err := c.parseInherit(decl.Text)
		res.Diagnostic = diag.FromError(err)
		res.Inheritance = list
	case "":
		res.Diagnostic = diag.Fail("declaration must start with 'call:' or 'inherit:'", 0)
	default:
		res.Diagnostic = diag.Fail(fmt.Sprintf("unknown declaration kind '%s'", decl.Kind), 0)
	}
	return res
}

func (c *Checker) parseCall(text string) (*signature.CallSignature, error) {
	started := time.Now()
	sig, err := c.calls.Parse(text)
	record(KindCall, started, err)
	return sig, err
}

func (c *Checker) parseInherit(text string) (*inherit.InheritanceList, error) {
	started := time.Now()
	list, err := c.lists.Parse(text)
	record(KindInherit, started, err)
	return list, err
}

func record(kind Kind, started time.Time, err error) {
	observability.CheckDuration.WithLabelValues(string(kind)).Observe(time.Since(started).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.ChecksTotal.WithLabelValues(string(kind), outcome).Inc()
}

func syntaxError(err error, kind Kind) error {
	var de *diag.Error
	if stderrors.As(err, &de) {
		return errors.Syntax(de, string(kind))
	}
	return errors.Wrap(err, errors.CodeInternal, string(kind)+" parser failed")
}

// Health reports the state of the checker's collaborators.
func (c *Checker) Health(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if c.oracle == nil {
		status.Status = "degraded"
		status.Components["oracle"] = "missing"
	} else if verdict := c.oracle.Check(ports.ProbeArgument, "0"); verdict != nil {
		status.Status = "degraded"
		status.Components["oracle"] = "failing: " + verdict.Message
	} else {
		status.Components["oracle"] = "ok (" + c.cfg.Oracle.Backend + ")"
	}

	switch {
	case c.store != nil:
		if _, err := c.store.LoadRuns(1); err != nil {
			status.Status = "degraded"
			status.Components["history"] = "error: " + err.Error()
			slog.Warn("history health check failed", "error", err)
		} else {
			status.Components["history"] = "ok"
		}
	case c.cfg.DB.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}
	return status
}
