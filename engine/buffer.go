package engine

import "sync"

// Cell is one grid cell: real and imaginary parts plus two spare channels.
// Scalar buffers (masks, probabilities) use only the first channel and
// density records use all four.
type Cell [4]float32

// AmplitudeCell packs a complex amplitude into a cell.
func AmplitudeCell(c complex64) Cell {
	return Cell{real(c), imag(c), 0, 0}
}

// Complex returns the first two channels as a complex number.
func (c Cell) Complex() complex64 {
	return complex(c[0], c[1])
}

// Buffer is an immutable, materialized grid of cells. Buffers are produced by
// Engine.Render and are never written after that.
type Buffer struct {
	shape Shape
	cells []Cell
	pool  *Pool
}

// NewBuffer copies cells into a buffer laid out on shape.
func NewBuffer(shape Shape, cells []Cell) (*Buffer, error) {
	if shape.Size() != len(cells) {
		return nil, &ShapeMismatchError{Op: "new buffer", Want: shape, Got: Shape{Width: len(cells), Height: 1}}
	}
	own := make([]Cell, len(cells))
	copy(own, cells)
	return &Buffer{shape: shape, cells: own}, nil
}

// NewAmplitudeBuffer builds a buffer from a state vector using the default
// grid for its size.
func NewAmplitudeBuffer(amps []complex64) (*Buffer, error) {
	n, err := qubitCount(len(amps))
	if err != nil {
		return nil, err
	}
	cells := make([]Cell, len(amps))
	for i, a := range amps {
		cells[i] = AmplitudeCell(a)
	}
	return &Buffer{shape: BitsShape(n), cells: cells}, nil
}

func (b *Buffer) Shape() Shape { return b.shape }

// Len returns the logical number of cells.
func (b *Buffer) Len() int { return len(b.cells) }

// Cell returns the cell at logical index i.
func (b *Buffer) Cell(i int) Cell { return b.cells[i] }

// At returns the cell at grid coordinate (x, y).
func (b *Buffer) At(x, y int) Cell { return b.cells[b.shape.Index(x, y)] }

// Amplitude returns the complex value at logical index i.
func (b *Buffer) Amplitude(i int) complex64 { return b.cells[i].Complex() }

// Amplitudes copies the complex values out in logical order.
func (b *Buffer) Amplitudes() []complex64 {
	out := make([]complex64, len(b.cells))
	for i, c := range b.cells {
		out[i] = c.Complex()
	}
	return out
}

// Scalars copies the first channel out in logical order.
func (b *Buffer) Scalars() []float64 {
	out := make([]float64, len(b.cells))
	for i, c := range b.cells {
		out[i] = float64(c[0])
	}
	return out
}

// Reshape returns a view of the same cells on another grid of equal size.
// The view does not own the storage; releasing it is a no-op.
func (b *Buffer) Reshape(s Shape) (*Buffer, error) {
	if s.Size() != len(b.cells) || s.Width <= 0 {
		return nil, &ShapeMismatchError{Op: "reshape", Want: b.shape, Got: s}
	}
	return &Buffer{shape: s, cells: b.cells}, nil
}

// Release hands the storage back to the pool it came from. The buffer must
// not be read afterwards.
func (b *Buffer) Release() {
	if b == nil || b.cells == nil {
		return
	}
	if b.pool != nil {
		b.pool.put(b.cells)
	}
	b.cells = nil
}

// Pool recycles cell storage between passes so that equally sized buffers
// reuse memory instead of growing the heap every column.
type Pool struct {
	mu      sync.Mutex
	free    map[int][][]Cell
	perSize int
}

// NewPool returns a pool keeping at most perSize idle slices per length.
func NewPool(perSize int) *Pool {
	return &Pool{free: make(map[int][][]Cell), perSize: perSize}
}

func (p *Pool) get(size int) []Cell {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.free[size]
	if n := len(list); n > 0 {
		cells := list[n-1]
		p.free[size] = list[:n-1]
		return cells
	}
	return make([]Cell, size)
}

func (p *Pool) put(cells []Cell) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free[len(cells)]) >= p.perSize {
		return
	}
	p.free[len(cells)] = append(p.free[len(cells)], cells)
}

// Idle returns the number of idle slices held for the given length.
func (p *Pool) Idle(size int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[size])
}
