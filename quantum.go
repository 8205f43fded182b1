package main

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"qtermsim/engine"
)

// Result is everything the views need from one evaluation of a circuit.
type Result struct {
	NumQubits     int
	Step          int // last column applied, -1 for the initial state
	Time          float64
	Amplitudes    []complex64
	Probabilities []float64
	Densities     []engine.Density
	// Timeline[k] holds the basis-state probabilities after k columns. It is
	// nil when the history grid does not fit the engine limits.
	Timeline [][]float64
}

// plannedGate is a gate resolved against the catalog with its control
// condition already built.
type plannedGate struct {
	gate Gate
	def  GateDef
	spec engine.ControlSpec
}

// Simulator evaluates circuits column by column on an engine.
type Simulator struct {
	eng *engine.Engine
	log *log.Logger

	mu      sync.Mutex
	planned *columnIndex
	plans   [][]plannedGate
}

func NewSimulator(eng *engine.Engine, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulator{eng: eng, log: logger}
}

// plan resolves every column of c. The plan of the most recent circuit value
// is kept, so re-running the same circuit at another step or time skips it.
func (s *Simulator) plan(c Circuit) ([][]plannedGate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.columns != nil && s.planned == c.columns {
		return s.plans, nil
	}

	plans := make([][]plannedGate, c.Steps())
	for step := range plans {
		for _, g := range c.Column(step) {
			def, ok := lookupGate(g.Type)
			if !ok {
				return nil, errors.Errorf("step %d: unknown gate %q", step, g.Type)
			}
			spec, err := g.ControlSpec()
			if err != nil {
				return nil, errors.Wrapf(err, "step %d: %s", step, g.Type)
			}
			plans[step] = append(plans[step], plannedGate{gate: g, def: def, spec: spec})
		}
	}
	s.planned, s.plans = c.columns, plans
	return plans, nil
}

// Run evaluates c from |0...0> through column upToStep (all columns when
// upToStep is negative or past the end) with time parameter t.
func (s *Simulator) Run(ctx context.Context, c Circuit, upToStep int, t float64) (*Result, error) {
	start := time.Now()
	n := c.NumQubits()
	if n < 1 {
		return nil, errors.New("simulate: empty register")
	}
	plans, err := s.plan(c)
	if err != nil {
		return nil, errors.Wrap(err, "simulate")
	}
	last := len(plans) - 1
	if upToStep >= 0 && upToStep < last {
		last = upToStep
	}

	shape, err := s.eng.StateShape(n)
	if err != nil {
		return nil, errors.Wrap(err, "simulate")
	}
	state, err := s.eng.Render(ctx, engine.ClassicalState(0), shape)
	if err != nil {
		return nil, errors.Wrap(err, "simulate")
	}
	defer func() { state.Release() }()

	masks := make(map[engine.ControlSpec]*engine.Buffer)
	defer func() {
		for _, m := range masks {
			m.Release()
		}
	}()
	maskFor := func(spec engine.ControlSpec) (*engine.Buffer, error) {
		if m, ok := masks[spec]; ok {
			return m, nil
		}
		k, err := engine.ControlMask(spec)
		if err != nil {
			return nil, err
		}
		m, err := s.eng.Render(ctx, k, shape)
		if err != nil {
			return nil, err
		}
		masks[spec] = m
		return m, nil
	}

	hist := s.newHistory(ctx, shape, last+2)
	defer func() { hist.release() }()
	if err := hist.record(ctx, 0, state); err != nil {
		return nil, errors.Wrap(err, "simulate")
	}

	for step := 0; step <= last; step++ {
		for _, p := range plans[step] {
			mask, err := maskFor(p.spec)
			if err != nil {
				return nil, errors.Wrapf(err, "simulate step %d: %s", step, p.gate.Type)
			}
			next, err := s.apply(ctx, state, p, t, mask)
			if err != nil {
				return nil, errors.Wrapf(err, "simulate step %d: %s", step, p.gate.Type)
			}
			state.Release()
			state = next
		}
		if err := hist.record(ctx, step+1, state); err != nil {
			return nil, errors.Wrap(err, "simulate")
		}
	}

	probs, err := s.eng.Render(ctx, engine.SquaredMagnitude(state), shape)
	if err != nil {
		return nil, errors.Wrap(err, "simulate")
	}
	defer probs.Release()
	dens, err := s.eng.AllQubitDensities(ctx, state)
	if err != nil {
		return nil, errors.Wrap(err, "simulate")
	}
	defer dens.Release()

	res := &Result{
		NumQubits:     n,
		Step:          last,
		Time:          t,
		Amplitudes:    state.Amplitudes(),
		Probabilities: probs.Scalars(),
		Densities:     engine.Densities(dens),
		Timeline:      hist.rows(state.Len()),
	}
	s.log.Debug("simulated", "qubits", n, "steps", last+1, "t", t, "took", time.Since(start))
	return res, nil
}

func (s *Simulator) apply(ctx context.Context, state *engine.Buffer, p plannedGate, t float64, mask *engine.Buffer) (*engine.Buffer, error) {
	var k *engine.Kernel
	var err error
	if p.def.Display == displaySwap {
		k, err = engine.Swap(state, p.gate.Target, p.gate.Target2, mask)
	} else {
		k, err = engine.QubitOperation(state, p.def.Matrix(t, p.gate.Params), p.gate.Target, mask)
	}
	if err != nil {
		return nil, err
	}
	return s.eng.Render(ctx, k, state.Shape())
}

// history stacks the probability buffer of every column into one grid, one
// block of rows per column.
type history struct {
	eng *engine.Engine
	buf *engine.Buffer
}

// newHistory allocates a zeroed history for the given number of columns. A
// history that exceeds the grid limits is disabled with a warning.
func (s *Simulator) newHistory(ctx context.Context, shape engine.Shape, columns int) *history {
	h := &history{eng: s.eng}
	grid := engine.Shape{Width: shape.Width, Height: shape.Height * columns}
	if err := s.eng.Limits().Check(grid); err != nil {
		s.log.Warn("timeline disabled", "err", err)
		return h
	}
	buf, err := s.eng.Render(ctx, engine.Constant(engine.Cell{}), grid)
	if err != nil {
		s.log.Warn("timeline disabled", "err", err)
		return h
	}
	h.buf = buf
	return h
}

func (h *history) record(ctx context.Context, column int, state *engine.Buffer) error {
	if h.buf == nil {
		return nil
	}
	probs, err := h.eng.Render(ctx, engine.SquaredMagnitude(state), state.Shape())
	if err != nil {
		return err
	}
	defer probs.Release()
	k, err := engine.LinearOverlay(column, probs, h.buf)
	if err != nil {
		return err
	}
	next, err := h.eng.Render(ctx, k, h.buf.Shape())
	if err != nil {
		return err
	}
	h.buf.Release()
	h.buf = next
	return nil
}

func (h *history) rows(size int) [][]float64 {
	if h.buf == nil {
		return nil
	}
	all := h.buf.Scalars()
	out := make([][]float64, len(all)/size)
	for k := range out {
		out[k] = all[k*size : (k+1)*size]
	}
	return out
}

func (h *history) release() {
	if h.buf != nil {
		h.buf.Release()
	}
}
