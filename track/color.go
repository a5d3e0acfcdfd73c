package track

import "math"

// Color is an RGB triple with components in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// goldenRatioConjugate spaces successive hues maximally apart.
const goldenRatioConjugate = 0.6180339887

// ColorForIndex returns a deterministic, maximally distinct color for the
// i-th track: hue_i = (i * 0.6180339887) mod 1 at fixed saturation/value.
// No palette needs to be stored; the index alone reproduces the color.
func ColorForIndex(i int) Color {
	hue := math.Mod(float64(i)*goldenRatioConjugate, 1.0)
	return hsvToRGB(hue, 0.9, 0.95)
}

func hsvToRGB(h, s, v float64) Color {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	switch i % 6 {
	case 0:
		return Color{R: v, G: t, B: p}
	case 1:
		return Color{R: q, G: v, B: p}
	case 2:
		return Color{R: p, G: v, B: t}
	case 3:
		return Color{R: p, G: q, B: v}
	case 4:
		return Color{R: t, G: p, B: v}
	default:
		return Color{R: v, G: p, B: q}
	}
}
