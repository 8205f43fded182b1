package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// factorizations lists every power-of-two grid holding 2^n cells.
func factorizations(n int) []Shape {
	var out []Shape
	for wb := 0; wb <= n; wb++ {
		out = append(out, Shape{Width: 1 << wb, Height: 1 << (n - wb)})
	}
	return out
}

func TestShapeIndexCoordBijection(t *testing.T) {
	for n := 0; n <= 6; n++ {
		for _, s := range factorizations(n) {
			seen := make(map[int]bool)
			for y := 0; y < s.Height; y++ {
				for x := 0; x < s.Width; x++ {
					i := s.Index(x, y)
					require.False(t, seen[i], "%v: index %d hit twice", s, i)
					seen[i] = true
					gx, gy := s.Coord(i)
					assert.Equal(t, [2]int{x, y}, [2]int{gx, gy})
				}
			}
			assert.Len(t, seen, 1<<n)
		}
	}
}

func TestClassicalStateOnTwoByFourGrid(t *testing.T) {
	e := newTestEngine()
	buf := render(t, e, ClassicalState(5), Shape{Width: 2, Height: 4})

	require.Equal(t, 8, buf.Len())
	for i := 0; i < 8; i++ {
		want := Cell{}
		if i == 5 {
			want = Cell{1, 0, 0, 0}
		}
		assert.Equal(t, want, buf.Cell(i), "index %d", i)
	}
	assert.Equal(t, Cell{1, 0, 0, 0}, buf.At(1, 2))
}

func TestClassicalStateReshapeInvariance(t *testing.T) {
	e := newTestEngine()
	for n := 0; n <= 6; n++ {
		for index := 0; index < 1<<n; index++ {
			var ref []complex64
			for _, s := range factorizations(n) {
				buf := render(t, e, ClassicalState(index), s)
				got := buf.Amplitudes()
				if ref == nil {
					ref = got
				} else {
					assert.Equal(t, ref, got, "n=%d index=%d shape=%v", n, index, s)
				}
				x, y := s.Coord(index)
				assert.Equal(t, float32(1), buf.At(x, y)[0])
				buf.Release()
			}
		}
	}
}

func TestClassicalStateCapacity(t *testing.T) {
	e := newTestEngine()
	for _, index := range []int{-1, 8, 100} {
		_, err := e.Render(t.Context(), ClassicalState(index), Shape{Width: 4, Height: 2})
		var capErr *CapacityError
		require.True(t, errors.As(err, &capErr), "index %d: %v", index, err)
		assert.Equal(t, "state index", capErr.What)
	}
}

func TestReshapeKeepsLogicalValues(t *testing.T) {
	src := randomState(t, 4, 7)
	for _, s := range factorizations(4) {
		view, err := src.Reshape(s)
		require.NoError(t, err)
		assert.Equal(t, src.Amplitudes(), view.Amplitudes())
	}
	_, err := src.Reshape(Shape{Width: 3, Height: 5})
	assert.Error(t, err)
}

func TestLimitsFit(t *testing.T) {
	l := Limits{MaxWidth: 16, MaxHeight: 16}
	tests := []struct {
		size int
		want Shape
	}{
		{1, Shape{1, 1}},
		{8, Shape{4, 2}},
		{64, Shape{8, 8}},
		{3, Shape{1, 3}},
		{12, Shape{4, 3}},
		{48, Shape{16, 3}},
	}
	for _, tt := range tests {
		got, err := l.Fit(tt.size)
		require.NoError(t, err, "size %d", tt.size)
		assert.Equal(t, tt.want, got, "size %d", tt.size)
	}

	_, err := l.Fit(3 * 256)
	var capErr *CapacityError
	assert.True(t, errors.As(err, &capErr))
	_, err = l.Fit(0)
	assert.True(t, errors.As(err, &capErr))
}

func TestLimitsMaxQubits(t *testing.T) {
	assert.Equal(t, 24, DefaultLimits.MaxQubits())
	assert.Equal(t, 5, Limits{MaxWidth: 8, MaxHeight: 4}.MaxQubits())
}
