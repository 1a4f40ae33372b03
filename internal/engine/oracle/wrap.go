package oracle

import (
	"fmt"
	"sync"
	"time"

	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
	"bindsig/internal/shared/observability"
	"bindsig/internal/shared/util"
)

// Options selects and decorates an oracle backend.
type Options struct {
	// Backend is "builtin" or "tree-sitter".
	Backend string
	// Serialize runs every check inside one critical section, for backends
	// that are not safe for concurrent use.
	Serialize bool
	// CacheSize bounds the answer cache; 0 disables caching.
	CacheSize int
	// Instrument records prometheus metrics per call.
	Instrument bool
}

// New builds the oracle described by opts. Decorators are applied innermost
// first: serialization, then caching, then metrics.
func New(opts Options) (ports.ExpressionOracle, error) {
	var o ports.ExpressionOracle
	switch opts.Backend {
	case "", "builtin":
		o = NewBuiltin()
	case "tree-sitter":
		o = NewTreeSitter()
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", opts.Backend)
	}
	if opts.Serialize {
		o = NewSerialized(o)
	}
	if opts.CacheSize > 0 {
		o = NewCached(o, opts.CacheSize)
	}
	if opts.Instrument {
		o = NewInstrumented(o)
	}
	return o, nil
}

// Serialized guards a backend with a mutex.
type Serialized struct {
	mu    sync.Mutex
	inner ports.ExpressionOracle
}

func NewSerialized(inner ports.ExpressionOracle) *Serialized {
	return &Serialized{inner: inner}
}

func (s *Serialized) Check(probe ports.Probe, expr string) *diag.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Check(probe, expr)
}

type cacheKey struct {
	probe ports.Probe
	expr  string
}

type cachedAnswer struct {
	err *diag.Error
}

// Cached memoizes answers. Oracle answers depend only on the probe and text.
type Cached struct {
	inner ports.ExpressionOracle
	cache *util.LRUCache[cacheKey, cachedAnswer]
}

func NewCached(inner ports.ExpressionOracle, size int) *Cached {
	return &Cached{inner: inner, cache: util.NewLRUCache[cacheKey, cachedAnswer](size)}
}

func (c *Cached) Check(probe ports.Probe, expr string) *diag.Error {
	key := cacheKey{probe: probe, expr: expr}
	if ans, ok := c.cache.Get(key); ok {
		observability.OracleCacheHitsTotal.Inc()
		return copyErr(ans.err)
	}
	err := c.inner.Check(probe, expr)
	c.cache.Put(key, cachedAnswer{err: copyErr(err)})
	return err
}

// Stats returns cache hits and misses.
func (c *Cached) Stats() (hits, misses uint64) {
	return c.cache.Stats()
}

func copyErr(err *diag.Error) *diag.Error {
	if err == nil {
		return nil
	}
	cp := *err
	return &cp
}

// Instrumented records call counts and latency.
type Instrumented struct {
	inner ports.ExpressionOracle
}

func NewInstrumented(inner ports.ExpressionOracle) *Instrumented {
	return &Instrumented{inner: inner}
}

func (m *Instrumented) Check(probe ports.Probe, expr string) *diag.Error {
	start := time.Now()
	err := m.inner.Check(probe, expr)
	observability.OracleDuration.WithLabelValues(probe.String()).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.OracleCallsTotal.WithLabelValues(probe.String(), outcome).Inc()
	return err
}
