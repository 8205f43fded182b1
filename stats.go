package main

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"qtermsim/engine"
)

// Summary condenses a probability distribution over basis states.
type Summary struct {
	Total      float64
	MostLikely int
	MaxProb    float64
}

// Summarize returns the total mass and the most likely basis state.
func Summarize(probs []float64) Summary {
	if len(probs) == 0 {
		return Summary{MostLikely: -1}
	}
	i := floats.MaxIdx(probs)
	return Summary{Total: floats.Sum(probs), MostLikely: i, MaxProb: probs[i]}
}

// QubitOne returns P(qubit q reads 1) for every qubit, taken from the
// diagonal of its reduced density matrix.
func QubitOne(res *Result) []float64 {
	out := make([]float64, len(res.Densities))
	for q, d := range res.Densities {
		out[q] = float64(d.Re11)
	}
	return out
}

// Conditional is the distribution of the other qubits given that one qubit
// was measured with a fixed value.
type Conditional struct {
	Qubit int
	Value bool
	// Prob is the probability of observing Value on Qubit.
	Prob float64
	// Dist is indexed by the remaining qubits in ascending order, renormalized
	// to sum to one. It is all zero when Prob is zero.
	Dist []float64
}

// Condition gathers the amplitudes of res where qubit reads value and
// returns their renormalized probabilities.
func Condition(ctx context.Context, eng *engine.Engine, res *Result, qubit int, value bool) (*Conditional, error) {
	spec, err := engine.Always.And(qubit, value)
	if err != nil {
		return nil, errors.Wrap(err, "condition")
	}
	state, err := engine.NewAmplitudeBuffer(res.Amplitudes)
	if err != nil {
		return nil, errors.Wrap(err, "condition")
	}
	k, err := engine.ControlSelect(spec, state)
	if err != nil {
		return nil, errors.Wrap(err, "condition")
	}
	sub, err := eng.Materialize(ctx, k)
	if err != nil {
		return nil, errors.Wrap(err, "condition")
	}
	defer sub.Release()
	probs, err := eng.Materialize(ctx, engine.SquaredMagnitude(sub))
	if err != nil {
		return nil, errors.Wrap(err, "condition")
	}
	defer probs.Release()

	dist := probs.Scalars()
	p := floats.Sum(dist)
	if p > 0 {
		floats.Scale(1/p, dist)
	}
	return &Conditional{Qubit: qubit, Value: value, Prob: p, Dist: dist}, nil
}

// Remaining returns the qubits that index Dist, lowest first.
func (c *Conditional) Remaining(numQubits int) []int {
	var qs []int
	for q := 0; q < numQubits; q++ {
		if q != c.Qubit {
			qs = append(qs, q)
		}
	}
	return qs
}
