// Package stabilize estimates per-frame 2D rigid motion from track data,
// smooths it and emits inverse correction transforms.
package stabilize

import (
	"github.com/solvekit/matchmove/track"
)

// Transform2D is a 2D similarity transform: translation in pixels,
// rotation in radians, uniform scale, about a normalized center point.
// Transforms are composed and inverted functionally, never mutated.
type Transform2D struct {
	Tx       float64     `json:"tx"`
	Ty       float64     `json:"ty"`
	Rotation float64     `json:"rotation"`
	Scale    float64     `json:"scale"`
	Center   track.Point `json:"center"`
}

// Identity returns the neutral transform centered on the image middle.
func Identity() Transform2D {
	return Transform2D{
		Scale:  1.0,
		Center: track.NewPoint(0.5, 0.5),
	}
}

// IsIdentity reports whether the transform carries no motion.
func (t Transform2D) IsIdentity() bool {
	return t.Tx == 0 && t.Ty == 0 && t.Rotation == 0 && t.Scale == 1.0
}

// Compose chains other after t: translations add, rotations add, scales
// multiply. The center of t is kept.
func (t Transform2D) Compose(other Transform2D) Transform2D {
	return Transform2D{
		Tx:       t.Tx + other.Tx,
		Ty:       t.Ty + other.Ty,
		Rotation: t.Rotation + other.Rotation,
		Scale:    t.Scale * other.Scale,
		Center:   t.Center,
	}
}

// Inverse returns the transform that undoes t.
func (t Transform2D) Inverse() Transform2D {
	return Transform2D{
		Tx:       -t.Tx,
		Ty:       -t.Ty,
		Rotation: -t.Rotation,
		Scale:    1.0 / t.Scale,
		Center:   t.Center,
	}
}

// Delta returns the componentwise difference t - other: translation
// subtracted, rotation subtracted, scale divided.
func (t Transform2D) Delta(other Transform2D) Transform2D {
	return Transform2D{
		Tx:       t.Tx - other.Tx,
		Ty:       t.Ty - other.Ty,
		Rotation: t.Rotation - other.Rotation,
		Scale:    t.Scale / other.Scale,
		Center:   t.Center,
	}
}
