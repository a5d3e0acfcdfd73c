package stabilize

import "math"

// GaussianSmooth convolves the series with a finite Gaussian kernel of
// size 2*floor(4*sigma)+1. At the boundaries the kernel is truncated and
// its weight renormalized locally rather than zero-padded, so short
// series don't shrink toward zero near their edges. A sigma <= 0 returns
// a copy of the input.
func GaussianSmooth(series []float64, sigma float64) []float64 {
	out := make([]float64, len(series))
	if sigma <= 0 || len(series) == 0 {
		copy(out, series)
		return out
	}

	radius := int(4.0 * sigma)
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2.0 * sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	for i := range series {
		acc := 0.0
		weight := 0.0
		for k := -radius; k <= radius; k++ {
			j := i + k
			if j < 0 || j >= len(series) {
				continue
			}
			w := kernel[k+radius]
			acc += series[j] * w
			weight += w
		}
		out[i] = acc / weight
	}
	return out
}

// sigmas derived from 0-1 smoothing factors. Translation gets a wider
// kernel than rotation and scale.
func translationSigma(factor float64) float64 {
	return factor*10.0 + 0.5
}

func angularSigma(factor float64) float64 {
	return factor*5.0 + 0.5
}

// SmoothTransforms smooths each transform component independently across
// the ordered frame list. Factors are 0-1 smoothing strengths for
// translation, rotation and scale. Centers are carried through unsmoothed.
func SmoothTransforms(transforms map[int]Transform2D, frames []int, smoothTranslation, smoothRotation, smoothScale float64) map[int]Transform2D {
	n := len(frames)
	tx := make([]float64, n)
	ty := make([]float64, n)
	rot := make([]float64, n)
	scale := make([]float64, n)
	for i, f := range frames {
		t := transforms[f]
		tx[i] = t.Tx
		ty[i] = t.Ty
		rot[i] = t.Rotation
		scale[i] = t.Scale
	}

	tx = GaussianSmooth(tx, translationSigma(smoothTranslation))
	ty = GaussianSmooth(ty, translationSigma(smoothTranslation))
	rot = GaussianSmooth(rot, angularSigma(smoothRotation))
	scale = GaussianSmooth(scale, angularSigma(smoothScale))

	out := make(map[int]Transform2D, n)
	for i, f := range frames {
		out[f] = Transform2D{
			Tx:       tx[i],
			Ty:       ty[i],
			Rotation: rot[i],
			Scale:    scale[i],
			Center:   transforms[f].Center,
		}
	}
	return out
}
