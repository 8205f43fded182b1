package engine

import (
	"fmt"
	"math/bits"
)

// ControlSpec is the product condition "for every bit set in Mask the
// matching qubit equals the matching bit of Value".
type ControlSpec struct {
	Mask  uint64
	Value uint64
}

// Always is the empty condition, satisfied by every state.
var Always = ControlSpec{}

// NewControlSpec validates that value has no bits outside mask.
func NewControlSpec(mask, value uint64) (ControlSpec, error) {
	s := ControlSpec{Mask: mask, Value: value}
	return s, s.Validate()
}

// Validate reports an InvalidSpecError when Value has bits outside Mask.
func (s ControlSpec) Validate() error {
	if s.Value&^s.Mask != 0 {
		return &InvalidSpecError{Mask: s.Mask, Value: s.Value, Reason: "value has bits outside mask"}
	}
	return nil
}

// And adds the condition "qubit equals bit". Adding a qubit that is already
// constrained to the other value yields an unsatisfiable spec, which is
// reported as an error.
func (s ControlSpec) And(qubit int, bit bool) (ControlSpec, error) {
	if qubit < 0 || qubit >= 64 {
		return s, &CapacityError{What: "control qubit", Value: qubit, Limit: 64}
	}
	m := uint64(1) << qubit
	var v uint64
	if bit {
		v = m
	}
	if s.Mask&m != 0 && s.Value&m != v {
		return s, &InvalidSpecError{Mask: s.Mask, Value: s.Value, Reason: fmt.Sprintf("qubit %d constrained both ways", qubit)}
	}
	return ControlSpec{Mask: s.Mask | m, Value: s.Value | v}, nil
}

// Matches reports whether state index i satisfies the spec.
func (s ControlSpec) Matches(i int) bool {
	return uint64(i)&s.Mask == s.Value
}

// Touches reports whether the spec constrains the given qubit.
func (s ControlSpec) Touches(qubit int) bool {
	return s.Mask&(uint64(1)<<qubit) != 0
}

// Count returns the number of constrained qubits.
func (s ControlSpec) Count() int {
	return bits.OnesCount64(s.Mask)
}

func (s ControlSpec) String() string {
	return fmt.Sprintf("controls(mask=%#b value=%#b)", s.Mask, s.Value)
}

// ControlMask returns a kernel producing 1 at every index that satisfies the
// spec and 0 elsewhere. It accepts any grid.
func ControlMask(spec ControlSpec) (*Kernel, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Kernel{
		name: "controlMask",
		cell: func(i int) Cell {
			if spec.Matches(i) {
				return Cell{1, 0, 0, 0}
			}
			return Cell{}
		},
	}, nil
}

// ControlSelect gathers the cells of src that satisfy spec into a buffer
// 2^popcount(mask) times smaller. Output index j supplies the unconstrained
// bits, in order, and spec.Value supplies the constrained ones.
func ControlSelect(spec ControlSpec, src *Buffer) (*Kernel, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	n, err := qubitCount(src.Len())
	if err != nil {
		return nil, err
	}
	if hi := bits.Len64(spec.Mask); hi > n {
		return nil, &CapacityError{What: "control qubit", Value: hi - 1, Limit: n}
	}

	free := make([]int, 0, n)
	for q := 0; q < n; q++ {
		if !spec.Touches(q) {
			free = append(free, q)
		}
	}
	return &Kernel{
		name: "controlSelect",
		size: src.Len() >> spec.Count(),
		cell: func(j int) Cell {
			i := int(spec.Value)
			for k, q := range free {
				i |= (j >> k & 1) << q
			}
			return src.cells[i]
		},
	}, nil
}
