package engine

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func densities(t *testing.T, e *Engine, src *Buffer) []Density {
	t.Helper()
	out, err := e.AllQubitDensities(context.Background(), src)
	require.NoError(t, err)
	defer out.Release()
	return Densities(out)
}

// referenceDensity sums the partial trace directly in float64.
func referenceDensity(src *Buffer, q int) (re00, re01, im01, re11 float64) {
	bit := 1 << q
	for i := 0; i < src.Len(); i++ {
		if i&bit != 0 {
			continue
		}
		a0, a1 := src.Amplitude(i), src.Amplitude(i|bit)
		r0, i0 := float64(real(a0)), float64(imag(a0))
		r1, i1 := float64(real(a1)), float64(imag(a1))
		re00 += r0*r0 + i0*i0
		re11 += r1*r1 + i1*i1
		// a0 * conj(a1)
		re01 += r0*r1 + i0*i1
		im01 += i0*r1 - r0*i1
	}
	return
}

func ghz(t *testing.T, n int) *Buffer {
	t.Helper()
	amps := make([]complex64, 1<<n)
	amps[0] = complex(float32(1/math.Sqrt2), 0)
	amps[len(amps)-1] = complex(float32(1/math.Sqrt2), 0)
	buf, err := NewAmplitudeBuffer(amps)
	require.NoError(t, err)
	return buf
}

func TestAllQubitDensitiesSingleQubitPlus(t *testing.T) {
	e := newTestEngine()
	d := densities(t, e, ghz(t, 1))
	require.Len(t, d, 1)
	assert.InDelta(t, 0.5, d[0].Re00, tol)
	assert.InDelta(t, 0.5, d[0].Re01, tol)
	assert.InDelta(t, 0, d[0].Im01, tol)
	assert.InDelta(t, 0.5, d[0].Re11, tol)
}

func TestAllQubitDensitiesGHZIsMixedPerQubit(t *testing.T) {
	e := newTestEngine()
	for n := 2; n <= 6; n++ {
		d := densities(t, e, ghz(t, n))
		require.Len(t, d, n)
		for q, rho := range d {
			assert.InDelta(t, 0.5, rho.Re00, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, 0.5, rho.Re11, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, 0, rho.Re01, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, 0, rho.Im01, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, 0.5, rho.Purity(), tol)
		}
	}
}

func TestAllQubitDensitiesMatchesReference(t *testing.T) {
	e := newTestEngine()
	for n := 1; n <= 9; n++ {
		src := randomState(t, n, int64(100+n))
		d := densities(t, e, src)
		require.Len(t, d, n)
		for q, rho := range d {
			re00, re01, im01, re11 := referenceDensity(src, q)
			assert.InDelta(t, re00, rho.Re00, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, re01, rho.Re01, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, im01, rho.Im01, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, re11, rho.Re11, tol, "n=%d q=%d", n, q)
			assert.InDelta(t, 1, rho.Trace(), tol, "trace n=%d q=%d", n, q)

			m := rho.Matrix()
			assert.Equal(t, m[0][1], conj(m[1][0]), "hermitian")
			assert.Zero(t, imag(m[0][0]))
			assert.Zero(t, imag(m[1][1]))
		}
	}
}

func TestAllQubitDensitiesFoldsUnderTightLimits(t *testing.T) {
	const n = 6
	src := randomState(t, n, 42)
	want := densities(t, newTestEngine(), src)

	// 6 * 2^5 = 192 term cells do not fit an 8x8 grid, so the first pass
	// has to pre-sum pairs of terms.
	tight := newTestEngine(WithLimits(Limits{MaxWidth: 8, MaxHeight: 8}))
	got := densities(t, tight, src)
	require.Len(t, got, n)
	for q := range want {
		assert.InDelta(t, want[q].Re00, got[q].Re00, tol)
		assert.InDelta(t, want[q].Re01, got[q].Re01, tol)
		assert.InDelta(t, want[q].Im01, got[q].Im01, tol)
		assert.InDelta(t, want[q].Re11, got[q].Re11, tol)
	}
}

func TestAllQubitDensitiesRejectsEmptyRegister(t *testing.T) {
	src, err := NewAmplitudeBuffer([]complex64{1})
	require.NoError(t, err)
	_, err = newTestEngine().AllQubitDensities(context.Background(), src)
	var capErr *CapacityError
	assert.True(t, errors.As(err, &capErr), "got %v", err)
}

func TestDensityBloch(t *testing.T) {
	e := newTestEngine()
	plus := densities(t, e, ghz(t, 1))[0]
	x, y, z := plus.Bloch()
	assert.InDelta(t, 1, x, tol)
	assert.InDelta(t, 0, y, tol)
	assert.InDelta(t, 0, z, tol)

	one := render(t, e, ClassicalState(1), BitsShape(1))
	x, y, z = densities(t, e, one)[0].Bloch()
	assert.InDelta(t, 0, x, tol)
	assert.InDelta(t, 0, y, tol)
	assert.InDelta(t, -1, z, tol)
}
