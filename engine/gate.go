package engine

import "fmt"

// Matrix2 is a 2x2 complex matrix acting on one qubit, indexed [row][col].
// Unitarity is assumed, not checked.
type Matrix2 [2][2]complex64

// Identity is the 2x2 identity.
var Identity = Matrix2{{1, 0}, {0, 1}}

// Adjoint returns the conjugate transpose.
func (m Matrix2) Adjoint() Matrix2 {
	return Matrix2{
		{conj(m[0][0]), conj(m[1][0])},
		{conj(m[0][1]), conj(m[1][1])},
	}
}

// Mul returns m·o.
func (m Matrix2) Mul(o Matrix2) Matrix2 {
	var r Matrix2
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][0]*o[0][j] + m[i][1]*o[1][j]
		}
	}
	return r
}

func (m Matrix2) String() string {
	return fmt.Sprintf("[[%v %v] [%v %v]]", m[0][0], m[0][1], m[1][0], m[1][1])
}

func conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

// checkOperands validates the amplitude buffer, the mask buffer and the
// qubit indices an operation works on, and returns the qubit count.
func checkOperands(op string, src, mask *Buffer, qubits ...int) (int, error) {
	n, err := qubitCount(src.Len())
	if err != nil {
		return 0, err
	}
	if mask.Len() != src.Len() {
		return 0, &ShapeMismatchError{Op: op, Want: src.shape, Got: mask.shape}
	}
	for _, q := range qubits {
		if q < 0 || q >= n {
			return 0, &CapacityError{What: "qubit index", Value: q, Limit: n}
		}
	}
	return n, nil
}

// QubitOperation applies m to qubit q wherever the mask is 1. States are
// paired by bit q; the mask is read at the member with bit q clear, so the
// controls behind the mask must never involve q itself.
func QubitOperation(src *Buffer, m Matrix2, q int, mask *Buffer) (*Kernel, error) {
	if _, err := checkOperands("qubitOperation", src, mask, q); err != nil {
		return nil, err
	}
	bit := 1 << q
	return &Kernel{
		name: "qubitOperation",
		size: src.Len(),
		cell: func(i int) Cell {
			i0 := i &^ bit
			if mask.cells[i0][0] == 0 {
				return src.cells[i]
			}
			a0 := src.cells[i0].Complex()
			a1 := src.cells[i0|bit].Complex()
			row := 0
			if i&bit != 0 {
				row = 1
			}
			return AmplitudeCell(m[row][0]*a0 + m[row][1]*a1)
		},
	}, nil
}

// Swap exchanges the roles of qubits a and b wherever the mask is 1: the
// amplitude at i moves to the index with both bits flipped when the two bits
// differ. Applying the same swap twice restores the input exactly.
func Swap(src *Buffer, a, b int, mask *Buffer) (*Kernel, error) {
	if _, err := checkOperands("swap", src, mask, a, b); err != nil {
		return nil, err
	}
	if a == b {
		return nil, &InvalidSpecError{Mask: 1 << a, Value: 0, Reason: fmt.Sprintf("swap of qubit %d with itself", a)}
	}
	both := 1<<a | 1<<b
	return &Kernel{
		name: "swap",
		size: src.Len(),
		cell: func(i int) Cell {
			if (i>>a)&1 == (i>>b)&1 || mask.cells[i][0] == 0 {
				return src.cells[i]
			}
			return src.cells[i^both]
		},
	}, nil
}
