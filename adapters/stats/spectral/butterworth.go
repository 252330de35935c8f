// Package spectral provides the band-pass filter and analytic-signal transform used by
// the coherence analyzer. Filters are designed as cascaded second-order sections.
package spectral

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gocoherence/domain/core"
)

// Section is one biquad: B are numerator and A denominator coefficients, A[0] == 1.
type Section struct {
	B [3]float64
	A [3]float64
}

const realPoleTolerance = 1e-10

// DesignBandpass designs a digital Butterworth band-pass filter of the given order with
// cutoffs lowHz and highHz at sample rate fs. The result has `order` sections, ordered
// with the poles nearest the unit circle last; the overall gain lives in the first section.
//
// The analog prototype is prewarped, shifted to the band with the low-pass to band-pass
// transform, and mapped to the z-plane with the bilinear transform.
func DesignBandpass(order int, lowHz, highHz, fs float64) ([]Section, error) {
	if fs <= 0 || math.IsNaN(fs) {
		return nil, core.NewBandError(lowHz, highHz, fs/2, order)
	}
	nyquist := fs / 2
	if order < 1 || !(lowHz > 0) || !(highHz < nyquist) || !(lowHz < highHz) {
		return nil, core.NewBandError(lowHz, highHz, nyquist, order)
	}

	// Normalized to nyquist, then prewarped for a bilinear transform at fs = 2.
	wl := 4 * math.Tan(math.Pi*(lowHz/nyquist)/2)
	wh := 4 * math.Tan(math.Pi*(highHz/nyquist)/2)
	bw := wh - wl
	wo2 := complex(wl*wh, 0)

	poles := make([]complex128, 0, 2*order)
	lowpass := make([]complex128, 0, order)
	for m := -order + 1; m < order; m += 2 {
		p := -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*order)))
		lowpass = append(lowpass, p*complex(bw/2, 0))
	}
	for _, p := range lowpass {
		poles = append(poles, p+cmplx.Sqrt(p*p-wo2))
	}
	for _, p := range lowpass {
		poles = append(poles, p-cmplx.Sqrt(p*p-wo2))
	}

	// order zeros at s = 0 map to z = +1; the bilinear transform adds order zeros at z = -1.
	denom := complex(1, 0)
	for _, p := range poles {
		denom *= 4 - p
	}
	gain := math.Pow(bw, float64(order)) * real(complex(math.Pow(4, float64(order)), 0)/denom)

	digital := make([]complex128, len(poles))
	for i, p := range poles {
		digital[i] = (4 + p) / (4 - p)
	}

	sections, err := pairPoles(digital, order)
	if err != nil {
		return nil, err
	}
	for i := range sections[0].B {
		sections[0].B[i] *= gain
	}
	return sections, nil
}

// pairPoles groups z-plane poles into biquads: each complex pole with its conjugate and
// the real poles two at a time. Every section gets one zero at +1 and one at -1.
func pairPoles(poles []complex128, want int) ([]Section, error) {
	type biquad struct {
		radius float64
		a1, a2 float64
	}
	var quads []biquad
	var reals []float64
	for _, p := range poles {
		switch {
		case imag(p) > realPoleTolerance:
			quads = append(quads, biquad{radius: cmplx.Abs(p), a1: -2 * real(p), a2: real(p)*real(p) + imag(p)*imag(p)})
		case math.Abs(imag(p)) <= realPoleTolerance:
			reals = append(reals, real(p))
		}
	}
	if len(reals)%2 != 0 {
		return nil, fmt.Errorf("unpaired real pole in band-pass design (%d real poles)", len(reals))
	}
	sort.Float64s(reals)
	for i := 0; i < len(reals); i += 2 {
		r1, r2 := reals[i], reals[i+1]
		quads = append(quads, biquad{radius: math.Max(math.Abs(r1), math.Abs(r2)), a1: -(r1 + r2), a2: r1 * r2})
	}
	if len(quads) != want {
		return nil, fmt.Errorf("band-pass design produced %d sections, want %d", len(quads), want)
	}

	sort.SliceStable(quads, func(i, j int) bool { return quads[i].radius < quads[j].radius })
	sections := make([]Section, len(quads))
	for i, q := range quads {
		sections[i] = Section{
			B: [3]float64{1, 0, -1},
			A: [3]float64{1, q.a1, q.a2},
		}
	}
	return sections, nil
}

// FrequencyResponse evaluates the cascade at normalized angular frequency omega (radians per sample).
func FrequencyResponse(sos []Section, omega float64) complex128 {
	zinv := cmplx.Exp(complex(0, -omega))
	h := complex(1, 0)
	for _, s := range sos {
		num := complex(s.B[0], 0) + complex(s.B[1], 0)*zinv + complex(s.B[2], 0)*zinv*zinv
		den := complex(s.A[0], 0) + complex(s.A[1], 0)*zinv + complex(s.A[2], 0)*zinv*zinv
		h *= num / den
	}
	return h
}
