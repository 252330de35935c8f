package spectral

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/domain/core"
)

// centerOmega is the digital frequency where the default band has unit gain.
func centerOmega(low, high, fs float64) float64 {
	nyq := fs / 2
	wl := 4 * math.Tan(math.Pi*(low/nyq)/2)
	wh := 4 * math.Tan(math.Pi*(high/nyq)/2)
	return 2 * math.Atan(math.Sqrt(wl*wh)/4)
}

func TestDesignBandpass_RejectsInvalidBands(t *testing.T) {
	cases := []struct {
		name      string
		order     int
		low, high float64
		fs        float64
	}{
		{"zero low", 4, 0, 0.1, 1},
		{"negative low", 4, -0.01, 0.1, 1},
		{"high at nyquist", 4, 0.01, 0.5, 1},
		{"high above nyquist", 4, 0.01, 0.7, 1},
		{"low equals high", 4, 0.1, 0.1, 1},
		{"low above high", 4, 0.2, 0.1, 1},
		{"zero order", 0, 0.01, 0.1, 1},
		{"zero sample rate", 4, 0.01, 0.1, 0},
		{"nan cutoff", 4, math.NaN(), 0.1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DesignBandpass(tc.order, tc.low, tc.high, tc.fs)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidBand)
		})
	}
}

func TestDesignBandpass_Response(t *testing.T) {
	sos, err := DesignBandpass(4, 0.01, 0.1, 1)
	require.NoError(t, err)
	require.Len(t, sos, 4)

	for _, s := range sos {
		assert.Equal(t, 1.0, s.A[0])
		// Stability triangle for a biquad.
		assert.Less(t, math.Abs(s.A[2]), 1.0)
		assert.Less(t, math.Abs(s.A[1]), 1+s.A[2])
	}

	assert.InDelta(t, 1.0, cmplx.Abs(FrequencyResponse(sos, centerOmega(0.01, 0.1, 1))), 1e-9)
	assert.InDelta(t, math.Sqrt(0.5), cmplx.Abs(FrequencyResponse(sos, 2*math.Pi*0.01)), 1e-9)
	assert.InDelta(t, math.Sqrt(0.5), cmplx.Abs(FrequencyResponse(sos, 2*math.Pi*0.1)), 1e-9)
	assert.InDelta(t, 0.0, cmplx.Abs(FrequencyResponse(sos, 0)), 1e-12)
	assert.InDelta(t, 0.0, cmplx.Abs(FrequencyResponse(sos, math.Pi)), 1e-12)
}

func TestDesignBandpass_SectionCountFollowsOrder(t *testing.T) {
	for _, order := range []int{1, 2, 3, 5, 8} {
		sos, err := DesignBandpass(order, 0.01, 0.1, 1)
		require.NoError(t, err)
		assert.Len(t, sos, order)
		assert.InDelta(t, 1.0, cmplx.Abs(FrequencyResponse(sos, centerOmega(0.01, 0.1, 1))), 1e-9)
	}

	// A wide band produces real pole pairs.
	sos, err := DesignBandpass(3, 0.001, 0.45, 1)
	require.NoError(t, err)
	assert.Len(t, sos, 3)
}

func TestFiltFilt_ZeroPhaseInBand(t *testing.T) {
	sos, err := DesignBandpass(4, 0.01, 0.1, 1)
	require.NoError(t, err)

	w0 := centerOmega(0.01, 0.1, 1)
	x := make([]float64, 2000)
	for i := range x {
		x[i] = math.Sin(w0*float64(i) + 0.3)
	}
	y := FiltFilt(sos, x)
	require.Len(t, y, len(x))

	for i := 400; i < 1600; i++ {
		assert.InDelta(t, x[i], y[i], 1e-3, "sample %d", i)
	}
}

func TestFiltFilt_RemovesConstant(t *testing.T) {
	sos, err := DesignBandpass(4, 0.01, 0.1, 1)
	require.NoError(t, err)

	x := make([]float64, 300)
	for i := range x {
		x[i] = 5
	}
	for _, v := range FiltFilt(sos, x) {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestFiltFilt_ShortSeries(t *testing.T) {
	sos, err := DesignBandpass(4, 0.01, 0.1, 1)
	require.NoError(t, err)

	assert.Equal(t, 27, PadLength(4, 1000))
	assert.Equal(t, 9, PadLength(4, 10))
	assert.Equal(t, 0, PadLength(4, 1))

	for _, n := range []int{1, 2, 5, 27, 28} {
		x := make([]float64, n)
		for i := range x {
			x[i] = float64(i%3) - 1
		}
		y := FiltFilt(sos, x)
		assert.Len(t, y, n)
		for _, v := range y {
			assert.False(t, math.IsNaN(v))
		}
	}
	assert.Empty(t, FiltFilt(sos, nil))
}

func TestAnalytic_RealPartIsInput(t *testing.T) {
	for _, n := range []int{1, 7, 8, 61} {
		x := make([]float64, n)
		for i := range x {
			x[i] = math.Sin(0.37*float64(i)) + 0.25*math.Cos(1.3*float64(i))
		}
		z := Analytic(x)
		require.Len(t, z, n)
		for i := range x {
			assert.InDelta(t, x[i], real(z[i]), 1e-9)
		}
	}
	assert.Nil(t, Analytic(nil))
}

func TestAnalytic_CosineHasUnitEnvelope(t *testing.T) {
	// Eight whole cycles over 128 samples.
	n := 128
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * 8 * float64(i) / float64(n))
	}
	z := Analytic(x)

	env := Envelope(z)
	phase := Phase(z)
	for i := range x {
		assert.InDelta(t, 1.0, env[i], 1e-9)
		assert.InDelta(t, math.Sin(2*math.Pi*8*float64(i)/float64(n)), imag(z[i]), 1e-9)
	}
	assert.InDelta(t, 0.0, phase[0], 1e-9)
}
