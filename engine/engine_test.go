package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-5

// newTestEngine uses tiny chunks so that every pass is split across workers.
func newTestEngine(opts ...Option) *Engine {
	return New(append([]Option{WithChunkSize(3), WithWorkers(4)}, opts...)...)
}

func render(t *testing.T, e *Engine, k *Kernel, s Shape) *Buffer {
	t.Helper()
	buf, err := e.Render(context.Background(), k, s)
	require.NoError(t, err)
	return buf
}

func mustKernel(t *testing.T) func(*Kernel, error) *Kernel {
	return func(k *Kernel, err error) *Kernel {
		t.Helper()
		require.NoError(t, err)
		return k
	}
}

func randomState(t *testing.T, n int, seed int64) *Buffer {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	amps := make([]complex64, 1<<n)
	var norm float64
	for i := range amps {
		re, im := r.NormFloat64(), r.NormFloat64()
		amps[i] = complex(float32(re), float32(im))
		norm += re*re + im*im
	}
	s := float32(1 / math.Sqrt(norm))
	for i := range amps {
		amps[i] *= complex(s, 0)
	}
	buf, err := NewAmplitudeBuffer(amps)
	require.NoError(t, err)
	return buf
}

func assertSameAmplitudes(t *testing.T, want, got *Buffer, delta float64) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		w, g := want.Amplitude(i), got.Amplitude(i)
		assert.InDelta(t, real(w), real(g), delta, "re at %d", i)
		assert.InDelta(t, imag(w), imag(g), delta, "im at %d", i)
	}
}

func TestRenderRejectsCancelledContext(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Render(ctx, ClassicalState(0), BitsShape(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderChecksKernelSize(t *testing.T) {
	e := newTestEngine()
	src := randomState(t, 3, 1)

	_, err := e.Render(context.Background(), SquaredMagnitude(src), BitsShape(2))
	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
}

func TestRenderChecksLimits(t *testing.T) {
	e := newTestEngine(WithLimits(Limits{MaxWidth: 4, MaxHeight: 4}))

	_, err := e.Render(context.Background(), ClassicalState(0), Shape{Width: 8, Height: 1})
	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr), "got %v", err)
	assert.Equal(t, "grid width", capErr.What)
}

func TestStateShapeFailsFast(t *testing.T) {
	e := newTestEngine(WithLimits(Limits{MaxWidth: 8, MaxHeight: 8}))

	s, err := e.StateShape(6)
	require.NoError(t, err)
	assert.Equal(t, Shape{Width: 8, Height: 8}, s)

	_, err = e.StateShape(7)
	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr), "got %v", err)
	assert.Equal(t, 7, capErr.Value)
}

func TestMaterializeNeedsIntrinsicSize(t *testing.T) {
	_, err := newTestEngine().Materialize(context.Background(), Constant(Cell{}))
	assert.Error(t, err)
}

func TestReleaseReturnsStorageToPool(t *testing.T) {
	e := newTestEngine()
	buf := render(t, e, ClassicalState(1), BitsShape(3))
	require.Equal(t, 0, e.Pool().Idle(8))

	view, err := buf.Reshape(Shape{Width: 8, Height: 1})
	require.NoError(t, err)
	view.Release()
	assert.Equal(t, 0, e.Pool().Idle(8), "views do not own storage")

	buf.Release()
	assert.Equal(t, 1, e.Pool().Idle(8))
	buf.Release()
	assert.Equal(t, 1, e.Pool().Idle(8), "double release is a no-op")

	again := render(t, e, ClassicalState(2), BitsShape(3))
	assert.Equal(t, 0, e.Pool().Idle(8))
	assert.Equal(t, float32(1), again.Cell(2)[0])
	assert.Equal(t, float32(0), again.Cell(1)[0], "recycled storage is fully rewritten")
}

func TestKernelCellWithoutMaterializing(t *testing.T) {
	k := mustKernel(t)(ControlMask(ControlSpec{Mask: 0b10, Value: 0b10}))
	assert.Equal(t, Cell{}, k.Cell(1))
	assert.Equal(t, Cell{1, 0, 0, 0}, k.Cell(3))
	assert.Equal(t, 0, k.Size())
}

func TestSquaredMagnitudeSumsToOne(t *testing.T) {
	e := newTestEngine()
	for n := 1; n <= 7; n++ {
		src := randomState(t, n, int64(n))
		probs := render(t, e, SquaredMagnitude(src), src.Shape())

		var sum float64
		for i := 0; i < probs.Len(); i++ {
			c := probs.Cell(i)
			a := src.Amplitude(i)
			assert.InDelta(t, real(a)*real(a)+imag(a)*imag(a), c[0], tol)
			assert.Zero(t, c[1])
			assert.Zero(t, c[2])
			assert.Zero(t, c[3])
			sum += float64(c[0])
		}
		assert.InDelta(t, 1, sum, tol, "n=%d", n)
	}
}

func TestNewBufferValidatesSize(t *testing.T) {
	_, err := NewBuffer(Shape{Width: 2, Height: 2}, make([]Cell, 3))
	assert.Error(t, err)

	_, err = NewAmplitudeBuffer(make([]complex64, 3))
	assert.Error(t, err)
}
