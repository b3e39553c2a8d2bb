// Package engine runs registered checks against a shared model under
// bounded concurrency, fault isolation, and a per-check timeout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ifcore/checkd/internal/model"
	"github.com/ifcore/checkd/internal/registry"
)

// ErrCheckTimeout marks a check that exceeded the per-check timeout.
var ErrCheckTimeout = errors.New("timed out")

// Outcome is one check's raw result: either the element records it
// emitted, or the fault that stopped it. A fault never carries partial
// elements.
type Outcome struct {
	Descriptor registry.Descriptor
	Elements   []map[string]any
	Err        error
}

// Engine fans check execution out over a bounded worker pool.
type Engine struct {
	concurrency int
	timeout     time.Duration
}

// New creates an Engine. concurrency is clamped to at least 1.
func New(concurrency int, perCheckTimeout time.Duration) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{concurrency: concurrency, timeout: perCheckTimeout}
}

// Run invokes every descriptor against the shared model and streams
// outcomes in the order checks complete, not descriptor order. The
// returned channel closes once all checks have reported. overrides maps
// check name to per-run parameter replacements. One check's panic,
// error, or timeout never disturbs its siblings.
func (e *Engine) Run(ctx context.Context, m model.Context, descriptors []registry.Descriptor, overrides map[string]map[string]float64) <-chan Outcome {
	out := make(chan Outcome)

	go func() {
		defer close(out)

		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for _, d := range descriptors {
			g.Go(func() error {
				out <- e.runOne(ctx, m, d, overrides[d.Name])
				return nil
			})
		}
		g.Wait()
	}()

	return out
}

func (e *Engine) runOne(ctx context.Context, m model.Context, d registry.Descriptor, overrides map[string]float64) Outcome {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		elements []map[string]any
		err      error
	}
	// Buffered so the check goroutine can always deliver, even after a
	// timeout has already produced the outcome.
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("check panicked",
					"check", d.Name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		elements, err := d.Run(runCtx, m, overrides)
		done <- result{elements: elements, err: err}
	}()

	select {
	case <-runCtx.Done():
		// Cancellation is cooperative: runCtx has been cancelled and the
		// routine is expected to bail out on its own.
		return Outcome{Descriptor: d, Err: ErrCheckTimeout}
	case r := <-done:
		if r.err != nil {
			return Outcome{Descriptor: d, Err: r.err}
		}
		return Outcome{Descriptor: d, Elements: r.elements}
	}
}
