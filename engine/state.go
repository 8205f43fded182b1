package engine

// ClassicalState returns a kernel for the basis state |index>: amplitude 1 at
// index and 0 everywhere else. The capacity is the size of the grid it is
// rendered on, so rendering onto a grid too small for index fails.
func ClassicalState(index int) *Kernel {
	return &Kernel{
		name: "classicalState",
		check: func(s Shape) error {
			if index < 0 || index >= s.Size() {
				return &CapacityError{What: "state index", Value: index, Limit: s.Size()}
			}
			return nil
		},
		cell: func(i int) Cell {
			if i == index {
				return Cell{1, 0, 0, 0}
			}
			return Cell{}
		},
	}
}

// Constant returns a kernel filling every cell with c.
func Constant(c Cell) *Kernel {
	return &Kernel{
		name: "constant",
		cell: func(int) Cell { return c },
	}
}

// SquaredMagnitude converts amplitudes into measurement probabilities.
func SquaredMagnitude(src *Buffer) *Kernel {
	return &Kernel{
		name: "squaredMagnitude",
		size: src.Len(),
		cell: func(i int) Cell {
			c := src.cells[i]
			return Cell{c[0]*c[0] + c[1]*c[1], 0, 0, 0}
		},
	}
}

// LinearOverlay splices fore into rows [k*h, (k+1)*h) of back, where h is the
// height of fore. Rows of that range outside back are dropped and every
// other row keeps the background value.
func LinearOverlay(k int, fore, back *Buffer) (*Kernel, error) {
	if fore.shape.Width != back.shape.Width || fore.shape.Height > back.shape.Height {
		return nil, &ShapeMismatchError{Op: "linearOverlay", Want: back.shape, Got: fore.shape}
	}
	w := back.shape.Width
	lo := k * fore.shape.Height * w
	hi := lo + fore.Len()
	return &Kernel{
		name: "linearOverlay",
		size: back.Len(),
		check: func(s Shape) error {
			if s.Width != w {
				return &ShapeMismatchError{Op: "linearOverlay", Want: back.shape, Got: s}
			}
			return nil
		},
		cell: func(i int) Cell {
			if i >= lo && i < hi {
				return fore.cells[i-lo]
			}
			return back.cells[i]
		},
	}, nil
}
