package engine

import (
	"context"

	"github.com/pkg/errors"
)

// Density is the reduced density matrix of one qubit. The matrix is
// Hermitian with unit trace, so four reals describe it:
//
//	ρ = [[Re00,             Re01 + i·Im01],
//	     [Re01 - i·Im01,    Re11         ]]
type Density struct {
	Re00 float32
	Re01 float32
	Im01 float32
	Re11 float32
}

// Matrix expands the record into the full 2x2 matrix.
func (d Density) Matrix() Matrix2 {
	off := complex(d.Re01, d.Im01)
	return Matrix2{
		{complex(d.Re00, 0), off},
		{conj(off), complex(d.Re11, 0)},
	}
}

// Trace returns ρ00 + ρ11, which is 1 for a normalized state.
func (d Density) Trace() float32 {
	return d.Re00 + d.Re11
}

// Bloch returns the Bloch vector (x, y, z) of the qubit.
func (d Density) Bloch() (x, y, z float64) {
	return 2 * float64(d.Re01), -2 * float64(d.Im01), float64(d.Re00 - d.Re11)
}

// Purity returns tr(ρ²); 1 for a pure qubit, 1/2 when maximally mixed.
func (d Density) Purity() float64 {
	a, b := float64(d.Re00), float64(d.Re11)
	r, i := float64(d.Re01), float64(d.Im01)
	return a*a + b*b + 2*(r*r+i*i)
}

// Densities decodes the output of AllQubitDensities.
func Densities(buf *Buffer) []Density {
	out := make([]Density, buf.Len())
	for q := range out {
		c := buf.cells[q]
		out[q] = Density{Re00: c[0], Re01: c[1], Im01: c[2], Re11: c[3]}
	}
	return out
}

// densityTerms lays out, for every qubit q, the pair contributions
// (|a0|², a0·conj(a1), |a1|²) where a0 and a1 differ only in bit q. Qubit q
// owns the contiguous block [q·w, (q+1)·w) with w = 2^(n-1-fold); when fold
// is positive each cell already sums 2^fold pair terms as a balanced tree,
// which keeps the first pass inside the grid limits for large n.
func densityTerms(src *Buffer, n, fold int) *Kernel {
	w := 1 << (n - 1 - fold)
	pair := func(q, j int) Cell {
		low := j & (1<<q - 1)
		i0 := (j-low)<<1 | low
		a0 := src.cells[i0].Complex()
		a1 := src.cells[i0|1<<q].Complex()
		c := a0 * conj(a1)
		return Cell{
			real(a0)*real(a0) + imag(a0)*imag(a0),
			real(c),
			imag(c),
			real(a1)*real(a1) + imag(a1)*imag(a1),
		}
	}
	var tree func(q, j, count int) Cell
	tree = func(q, j, count int) Cell {
		if count == 1 {
			return pair(q, j)
		}
		half := count / 2
		return addCells(tree(q, j, half), tree(q, j+half*w, half))
	}
	return &Kernel{
		name: "densityTerms",
		size: n * w,
		cell: func(k int) Cell {
			return tree(k/w, k%w, 1<<fold)
		},
	}
}

func addCells(a, b Cell) Cell {
	return Cell{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// densityFold halves every qubit's block of width terms: output j of a block
// is input j plus input j+width/2. Repeating it forms a balanced binary tree
// over each block, which keeps float32 rounding error logarithmic in the
// number of summed terms.
func densityFold(src *Buffer, n, width int) *Kernel {
	half := width / 2
	return &Kernel{
		name: "densityFold",
		size: n * half,
		cell: func(k int) Cell {
			q, j := k/half, k%half
			return addCells(src.cells[q*width+j], src.cells[q*width+j+half])
		},
	}
}

// AllQubitDensities computes the reduced density matrix of every qubit of
// an n-qubit amplitude buffer. The result holds one cell per qubit, decoded
// with Densities. Intermediate passes are released as soon as the next one
// is materialized.
func (e *Engine) AllQubitDensities(ctx context.Context, src *Buffer) (*Buffer, error) {
	n, err := qubitCount(src.Len())
	if err != nil {
		return nil, errors.Wrap(err, "allQubitDensities")
	}
	if n == 0 {
		return nil, errors.Wrap(&CapacityError{What: "qubit count", Value: 0, Limit: 1}, "allQubitDensities needs at least one qubit")
	}

	fold := 0
	for fold < n-1 {
		if _, err := e.limits.Fit(n << (n - 1 - fold)); err == nil {
			break
		}
		fold++
	}
	cur, err := e.Materialize(ctx, densityTerms(src, n, fold))
	if err != nil {
		return nil, err
	}
	for width := 1 << (n - 1 - fold); width > 1; width /= 2 {
		next, err := e.Materialize(ctx, densityFold(cur, n, width))
		cur.Release()
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
