package spectral

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analytic returns the analytic signal of x: its real part is x and its imaginary part
// the Hilbert transform. Negative frequencies are zeroed and positive ones doubled.
func Analytic(x []float64) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}

	seq := make([]complex128, n)
	for i, v := range x {
		seq[i] = complex(v, 0)
	}
	fft := fourier.NewCmplxFFT(n)
	coeff := fft.Coefficients(nil, seq)

	// coeff[0] and, for even n, the Nyquist bin keep unit weight.
	half := (n + 1) / 2
	for k := 1; k < half; k++ {
		coeff[k] *= 2
	}
	for k := n/2 + 1; k < n; k++ {
		coeff[k] = 0
	}

	out := fft.Sequence(nil, coeff)
	norm := complex(float64(n), 0)
	for i := range out {
		out[i] /= norm
	}
	return out
}

// Envelope returns |z| for each sample.
func Envelope(z []complex128) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = cmplx.Abs(v)
	}
	return out
}

// Phase returns arg(z) in (-pi, pi] for each sample.
func Phase(z []complex128) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = cmplx.Phase(v)
	}
	return out
}
