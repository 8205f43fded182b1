package engine

import "fmt"

// CapacityError reports a qubit index, state index or grid dimension that
// falls outside the range a buffer (or the platform limits) can address.
type CapacityError struct {
	What  string
	Value int
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: %s %d not below %d", e.What, e.Value, e.Limit)
}

// InvalidSpecError reports a malformed control specification or operand.
type InvalidSpecError struct {
	Mask   uint64
	Value  uint64
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec (mask=%#x value=%#x): %s", e.Mask, e.Value, e.Reason)
}

// ShapeMismatchError reports buffers whose dimensions cannot be combined.
type ShapeMismatchError struct {
	Op   string
	Want Shape
	Got  Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch, want %v got %v", e.Op, e.Want, e.Got)
}
