package main

import (
	"context"
	"errors"
	"math"
	"testing"

	"qtermsim/engine"
)

const eps = 1e-5

func testEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(append([]engine.Option{engine.WithWorkers(2), engine.WithChunkSize(3)}, opts...)...)
}

func simulate(t *testing.T, c Circuit, upToStep int, tm float64) *Result {
	t.Helper()
	res, err := NewSimulator(testEngine(), nil).Run(context.Background(), c, upToStep, tm)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return res
}

func closeComplex(a, b complex64) bool {
	return math.Abs(float64(real(a)-real(b))) < eps && math.Abs(float64(imag(a)-imag(b))) < eps
}

func checkProbs(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d probabilities, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > eps {
			t.Errorf("P(%d): expected %.4f, got %.4f", i, want[i], got[i])
		}
	}
}

func mustCircuit(t *testing.T, n int, gates ...Gate) Circuit {
	t.Helper()
	c, err := NewCircuit(n, gates...)
	if err != nil {
		t.Fatalf("NewCircuit error: %v", err)
	}
	return c
}

func bell(t *testing.T) Circuit {
	return mustCircuit(t, 2, NewGate("H", 0, 0), NewGate("X", 1, 1).Controlled(0))
}

func TestSimulateBell(t *testing.T) {
	res := simulate(t, bell(t), -1, 0)
	checkProbs(t, res.Probabilities, []float64{0.5, 0, 0, 0.5})
	if res.Step != 1 {
		t.Errorf("expected last step 1, got %d", res.Step)
	}
	for q, d := range res.Densities {
		if math.Abs(float64(d.Re00)-0.5) > eps || math.Abs(float64(d.Re01)) > eps {
			t.Errorf("q[%d]: expected a maximally mixed qubit, got %+v", q, d)
		}
	}
}

func TestSimulateUpToStep(t *testing.T) {
	res := simulate(t, bell(t), 0, 0)
	checkProbs(t, res.Probabilities, []float64{0.5, 0.5, 0, 0})
	if res.Step != 0 {
		t.Errorf("expected last step 0, got %d", res.Step)
	}
	x, _, _ := res.Densities[0].Bloch()
	if math.Abs(x-1) > eps {
		t.Errorf("expected q[0] on +x after H, got x=%.4f", x)
	}
}

func TestSimulateGHZ(t *testing.T) {
	for n := 1; n <= 5; n++ {
		c, err := demoCircuit(n)
		if err != nil {
			t.Fatalf("demoCircuit(%d) error: %v", n, err)
		}
		res := simulate(t, c, -1, 0)
		want := make([]float64, 1<<n)
		want[0], want[len(want)-1] = 0.5, 0.5
		checkProbs(t, res.Probabilities, want)
		if len(res.Densities) != n {
			t.Fatalf("expected %d densities, got %d", n, len(res.Densities))
		}
	}
}

func TestSimulateAntiControl(t *testing.T) {
	c := mustCircuit(t, 2, NewGate("X", 1, 0).AntiControlled(0))
	checkProbs(t, simulate(t, c, -1, 0).Probabilities, []float64{0, 0, 1, 0})

	c = mustCircuit(t, 2, NewGate("X", 0, 0), NewGate("X", 1, 1).AntiControlled(0))
	checkProbs(t, simulate(t, c, -1, 0).Probabilities, []float64{0, 1, 0, 0})
}

func TestSimulateSwap(t *testing.T) {
	c := mustCircuit(t, 3, NewGate("X", 0, 0), NewSwap(0, 2, 1))
	want := make([]float64, 8)
	want[4] = 1
	checkProbs(t, simulate(t, c, -1, 0).Probabilities, want)
}

func TestSimulateControlledSwap(t *testing.T) {
	c := mustCircuit(t, 3, NewGate("X", 0, 0), NewGate("X", 1, 0), NewSwap(1, 2, 1).Controlled(0))
	want := make([]float64, 8)
	want[5] = 1
	checkProbs(t, simulate(t, c, -1, 0).Probabilities, want)

	// control not satisfied
	c = mustCircuit(t, 3, NewGate("X", 1, 0), NewSwap(1, 2, 1).Controlled(0))
	want = make([]float64, 8)
	want[2] = 1
	checkProbs(t, simulate(t, c, -1, 0).Probabilities, want)
}

func TestSimulateTimedGates(t *testing.T) {
	c := mustCircuit(t, 1, NewGate("XT", 0, 0))
	tests := []struct {
		t  float64
		p1 float64
	}{
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 0},
	}
	for _, tt := range tests {
		res := simulate(t, c, -1, tt.t)
		if got := res.Probabilities[1]; math.Abs(got-tt.p1) > eps {
			t.Errorf("t=%.2f: expected P(1)=%.2f, got %.4f", tt.t, tt.p1, got)
		}
		if res.Time != tt.t {
			t.Errorf("expected result time %.2f, got %.2f", tt.t, res.Time)
		}
	}
}

func TestSimulateTimeline(t *testing.T) {
	res := simulate(t, bell(t), -1, 0)
	if len(res.Timeline) != 3 {
		t.Fatalf("expected 3 timeline rows, got %d", len(res.Timeline))
	}
	checkProbs(t, res.Timeline[0], []float64{1, 0, 0, 0})
	checkProbs(t, res.Timeline[1], []float64{0.5, 0.5, 0, 0})
	checkProbs(t, res.Timeline[2], []float64{0.5, 0, 0, 0.5})
}

func TestSimulateTimelineDisabledUnderTightLimits(t *testing.T) {
	eng := testEngine(engine.WithLimits(engine.Limits{MaxWidth: 4, MaxHeight: 4}))
	res, err := NewSimulator(eng, nil).Run(context.Background(), bell(t), -1, 0)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Timeline != nil {
		t.Errorf("expected no timeline, got %d rows", len(res.Timeline))
	}
	checkProbs(t, res.Probabilities, []float64{0.5, 0, 0, 0.5})
}

func TestSimulateCapacityError(t *testing.T) {
	eng := testEngine(engine.WithLimits(engine.Limits{MaxWidth: 2, MaxHeight: 2}))
	c, err := demoCircuit(3)
	if err != nil {
		t.Fatalf("demoCircuit error: %v", err)
	}
	_, err = NewSimulator(eng, nil).Run(context.Background(), c, -1, 0)
	var capErr *engine.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected a CapacityError, got %v", err)
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulator(testEngine(), nil).Run(ctx, bell(t), -1, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatorReusesPlan(t *testing.T) {
	sim := NewSimulator(testEngine(), nil)
	c := bell(t)
	if _, err := sim.Run(context.Background(), c, -1, 0); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	first := sim.plans
	if _, err := sim.Run(context.Background(), c, 0, 0); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if &sim.plans[0] != &first[0] {
		t.Errorf("expected the plan of an unchanged circuit to be reused")
	}

	next, err := c.WithGate(NewGate("Z", 0, 2))
	if err != nil {
		t.Fatalf("WithGate error: %v", err)
	}
	if _, err := sim.Run(context.Background(), next, -1, 0); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(sim.plans) != 3 {
		t.Errorf("expected a fresh 3-column plan, got %d columns", len(sim.plans))
	}
}

func TestSimulateReleasesBuffers(t *testing.T) {
	eng := testEngine()
	sim := NewSimulator(eng, nil)
	c, err := demoCircuit(4)
	if err != nil {
		t.Fatalf("demoCircuit error: %v", err)
	}
	if _, err := sim.Run(context.Background(), c, -1, 0); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if eng.Pool().Idle(16) == 0 {
		t.Errorf("expected state buffers to be returned to the pool")
	}
}
