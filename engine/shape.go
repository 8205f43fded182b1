package engine

import (
	"fmt"
	"math/bits"
)

// Shape is the 2D grid a buffer is laid out on. Cells are addressed row
// major, so for a power-of-two width the logical index is (y << log2(W)) | x
// and every factorization of the same size sees the same logical values.
type Shape struct {
	Width  int
	Height int
}

// Size returns the number of cells in the grid.
func (s Shape) Size() int {
	return s.Width * s.Height
}

// Index maps a grid coordinate to its logical index.
func (s Shape) Index(x, y int) int {
	return y*s.Width + x
}

// Coord maps a logical index to its grid coordinate.
func (s Shape) Coord(i int) (x, y int) {
	return i % s.Width, i / s.Width
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// BitsShape returns the default grid for a buffer of 2^n cells: the extra
// bit of an odd n goes to the width.
func BitsShape(n int) Shape {
	return Shape{Width: 1 << ((n + 1) / 2), Height: 1 << (n / 2)}
}

// Limits caps the grid dimensions a buffer may use, mirroring the maximum
// texture size of a GPU backend.
type Limits struct {
	MaxWidth  int
	MaxHeight int
}

// DefaultLimits allows up to 2^24 cells.
var DefaultLimits = Limits{MaxWidth: 4096, MaxHeight: 4096}

// Check reports whether s fits inside the limits.
func (l Limits) Check(s Shape) error {
	if s.Width <= 0 || s.Height <= 0 {
		return &ShapeMismatchError{Op: "shape", Want: Shape{1, 1}, Got: s}
	}
	if s.Width > l.MaxWidth {
		return &CapacityError{What: "grid width", Value: s.Width, Limit: l.MaxWidth + 1}
	}
	if s.Height > l.MaxHeight {
		return &CapacityError{What: "grid height", Value: s.Height, Limit: l.MaxHeight + 1}
	}
	return nil
}

// MaxQubits returns the largest qubit count whose default grid fits.
func (l Limits) MaxQubits() int {
	n := 0
	for l.Check(BitsShape(n+1)) == nil {
		n++
	}
	return n
}

// Fit picks a grid for size cells. Power-of-two sizes use BitsShape, other
// sizes use the largest power-of-two width that divides them.
func (l Limits) Fit(size int) (Shape, error) {
	if size <= 0 {
		return Shape{}, &CapacityError{What: "buffer size", Value: size, Limit: 1}
	}
	var s Shape
	if isPow2(size) {
		s = BitsShape(log2(size))
		for s.Width > l.MaxWidth && s.Height < l.MaxHeight {
			s.Width >>= 1
			s.Height <<= 1
		}
	} else {
		w := size & -size
		for w > l.MaxWidth {
			w >>= 1
		}
		s = Shape{Width: w, Height: size / w}
	}
	return s, l.Check(s)
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int) int {
	return bits.Len(uint(n)) - 1
}

// qubitCount returns n for a buffer of 2^n cells.
func qubitCount(size int) (int, error) {
	if !isPow2(size) {
		return 0, &ShapeMismatchError{Op: "qubit buffer", Want: BitsShape(log2(size)), Got: Shape{Width: size, Height: 1}}
	}
	return log2(size), nil
}
