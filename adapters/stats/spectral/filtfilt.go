package spectral

// PadLength returns the odd-extension length used by FiltFilt for a cascade of
// nsections biquads over a series of length n.
func PadLength(nsections, n int) int {
	pad := 3 * (2*nsections + 1)
	if pad > n-1 {
		pad = n - 1
	}
	if pad < 0 {
		pad = 0
	}
	return pad
}

// FiltFilt applies sos forward and then backward, giving zero phase distortion and the
// squared magnitude response. The series is extended at both ends by odd reflection and
// each pass starts from the steady-state conditions for its first sample. Series shorter
// than the default padding are padded with length-1 samples instead.
func FiltFilt(sos []Section, x []float64) []float64 {
	n := len(x)
	if n == 0 || len(sos) == 0 {
		return append([]float64(nil), x...)
	}

	pad := PadLength(len(sos), n)
	ext := oddExtend(x, pad)
	zi := steadyState(sos)

	y := filter(sos, ext, scaled(zi, ext[0]))
	reverse(y)
	y = filter(sos, y, scaled(zi, y[0]))
	reverse(y)

	out := make([]float64, n)
	copy(out, y[pad:pad+n])
	return out
}

func oddExtend(x []float64, pad int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*pad)
	first, last := x[0], x[n-1]
	for i := 0; i < pad; i++ {
		ext[i] = 2*first - x[pad-i]
		ext[pad+n+i] = 2*last - x[n-2-i]
	}
	copy(ext[pad:], x)
	return ext
}

// steadyState returns per-section initial delays for a unit step input.
func steadyState(sos []Section) [][2]float64 {
	zi := make([][2]float64, len(sos))
	scale := 1.0
	for i, s := range sos {
		b, a := s.B, s.A
		r0 := b[1] - a[1]*b[0]
		r1 := b[2] - a[2]*b[0]
		det := 1 + a[1] + a[2]
		zi[i] = [2]float64{
			scale * (r0 + r1) / det,
			scale * ((1+a[1])*r1 - a[2]*r0) / det,
		}
		scale *= (b[0] + b[1] + b[2]) / (a[0] + a[1] + a[2])
	}
	return zi
}

func scaled(zi [][2]float64, by float64) [][2]float64 {
	out := make([][2]float64, len(zi))
	for i, z := range zi {
		out[i] = [2]float64{z[0] * by, z[1] * by}
	}
	return out
}

// filter runs the cascade in transposed direct form II.
func filter(sos []Section, x []float64, zi [][2]float64) []float64 {
	y := append([]float64(nil), x...)
	for i, s := range sos {
		z0, z1 := zi[i][0], zi[i][1]
		for t, in := range y {
			out := s.B[0]*in + z0
			z0 = s.B[1]*in - s.A[1]*out + z1
			z1 = s.B[2]*in - s.A[2]*out
			y[t] = out
		}
	}
	return y
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
