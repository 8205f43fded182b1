package engine

import (
	"context"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Kernel describes a buffer that has not been materialized yet. Every cell
// is a pure function of its logical index and of already materialized input
// buffers, so cells can be computed in any order and in parallel.
type Kernel struct {
	name  string
	size  int
	check func(Shape) error
	cell  func(i int) Cell
}

func (k *Kernel) Name() string { return k.name }

// Size returns the fixed logical size, or 0 when any grid is accepted.
func (k *Kernel) Size() int { return k.size }

// Cell evaluates a single logical cell without materializing the kernel.
func (k *Kernel) Cell(i int) Cell { return k.cell(i) }

// Engine materializes kernels on a bounded set of goroutines.
type Engine struct {
	limits  Limits
	workers int
	chunk   int
	pool    *Pool
	log     *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits sets the maximum grid dimensions.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithWorkers sets how many chunks are computed concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithChunkSize sets how many cells one goroutine computes per task.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunk = n
		}
	}
}

// WithLogger sets the logger used for per-pass debug output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPool shares a buffer pool between engines.
func WithPool(p *Pool) Option {
	return func(e *Engine) { e.pool = p }
}

// New returns an engine with the default limits and one worker per logical core.
func New(opts ...Option) *Engine {
	e := &Engine{
		limits:  DefaultLimits,
		workers: DefaultWorkers(),
		chunk:   4096,
		pool:    NewPool(4),
		log:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultWorkers returns the logical core count reported by cpuid, falling
// back to GOMAXPROCS when detection fails.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func (e *Engine) Limits() Limits { return e.limits }

func (e *Engine) Workers() int { return e.workers }

func (e *Engine) Pool() *Pool { return e.pool }

// StateShape returns the default grid for an n-qubit amplitude buffer and
// fails fast when it exceeds the limits.
func (e *Engine) StateShape(qubits int) (Shape, error) {
	if qubits < 0 {
		return Shape{}, &CapacityError{What: "qubit count", Value: qubits, Limit: 0}
	}
	if limit := e.limits.MaxQubits(); qubits > limit {
		return Shape{}, &CapacityError{What: "qubit count", Value: qubits, Limit: limit + 1}
	}
	return BitsShape(qubits), nil
}

// Render materializes k on the given grid into a freshly allocated buffer.
// The context is only consulted before the pass starts; a started pass
// always runs to completion.
func (e *Engine) Render(ctx context.Context, k *Kernel, shape Shape) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "render %s", k.name)
	}
	if err := e.limits.Check(shape); err != nil {
		return nil, errors.Wrapf(err, "render %s", k.name)
	}
	if k.size != 0 && shape.Size() != k.size {
		return nil, errors.Wrapf(&ShapeMismatchError{Op: k.name, Want: Shape{Width: k.size, Height: 1}, Got: shape}, "render %s", k.name)
	}
	if k.check != nil {
		if err := k.check(shape); err != nil {
			return nil, errors.Wrapf(err, "render %s", k.name)
		}
	}

	start := time.Now()
	size := shape.Size()
	cells := e.pool.get(size)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for lo := 0; lo < size; lo += e.chunk {
		lo, hi := lo, min(lo+e.chunk, size)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				cells[i] = k.cell(i)
			}
			return nil
		})
	}
	_ = g.Wait()

	e.log.Debug("kernel pass", "kernel", k.name, "shape", shape, "cells", size, "took", time.Since(start))
	return &Buffer{shape: shape, cells: cells, pool: e.pool}, nil
}

// Materialize renders k on the default grid for its size.
func (e *Engine) Materialize(ctx context.Context, k *Kernel) (*Buffer, error) {
	if k.size == 0 {
		return nil, errors.Errorf("materialize %s: kernel has no intrinsic size, use Render", k.name)
	}
	shape, err := e.limits.Fit(k.size)
	if err != nil {
		return nil, errors.Wrapf(err, "materialize %s", k.name)
	}
	return e.Render(ctx, k, shape)
}
