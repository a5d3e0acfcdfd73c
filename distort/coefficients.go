// Package distort implements the Brown-Conrady lens distortion model, a
// named camera profile store and an ST-Map generator for distortion
// correction maps.
package distort

import (
	"math"

	"github.com/pkg/errors"
)

// Coefficients holds Brown-Conrady distortion parameters. The zero value
// is the identity mapping (no distortion).
type Coefficients struct {
	K1 float64 `json:"k1" toml:"k1"`
	K2 float64 `json:"k2" toml:"k2"`
	K3 float64 `json:"k3" toml:"k3"`
	P1 float64 `json:"p1" toml:"p1"`
	P2 float64 `json:"p2" toml:"p2"`
	// Principal point offset in normalized centered coordinates.
	Cx float64 `json:"cx" toml:"cx"`
	Cy float64 `json:"cy" toml:"cy"`
}

// Validate rejects non-finite parameters. Apply and Remove never check:
// malformed coefficients propagate as NaN outputs, so validation belongs
// at load time.
func (c Coefficients) Validate() error {
	for _, v := range []float64{c.K1, c.K2, c.K3, c.P1, c.P2, c.Cx, c.Cy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("non-finite distortion coefficient in %+v", c)
		}
	}
	return nil
}

// IsZero reports whether the coefficients describe the identity mapping.
func (c Coefficients) IsZero() bool {
	return c == Coefficients{}
}

// Apply maps an undistorted coordinate to its distorted position.
// Coordinates are normalized and centered at the image center, roughly
// in [-0.5, 0.5].
//
//	x_d = x*(1 + k1*r^2 + k2*r^4 + k3*r^6) + 2*p1*x*y + p2*(r^2 + 2*x^2)
//	y_d = y*(1 + k1*r^2 + k2*r^4 + k3*r^6) + p1*(r^2 + 2*y^2) + 2*p2*x*y
func (c Coefficients) Apply(x, y float64) (float64, float64) {
	xc := x - c.Cx
	yc := y - c.Cy
	r2 := xc*xc + yc*yc
	r4 := r2 * r2
	r6 := r4 * r2
	radial := 1.0 + c.K1*r2 + c.K2*r4 + c.K3*r6
	tx := 2.0*c.P1*xc*yc + c.P2*(r2+2.0*xc*xc)
	ty := c.P1*(r2+2.0*yc*yc) + 2.0*c.P2*xc*yc
	return xc*radial + tx + c.Cx, yc*radial + ty + c.Cy
}

// DefaultRemoveIterations is the fixed iteration budget of Remove.
const DefaultRemoveIterations = 10

// removeTolerance is the squared residual below which RemoveN exits early.
const removeTolerance = 1e-12

// Remove maps a distorted coordinate back to its undistorted position
// using DefaultRemoveIterations fixed-point iterations.
func (c Coefficients) Remove(x, y float64) (float64, float64) {
	return c.RemoveN(x, y, DefaultRemoveIterations)
}

// RemoveN inverts Apply by fixed-point iteration seeded at the distorted
// coordinate: each step recomputes the forward map at the current estimate
// and nudges the estimate by the residual. For typical lens ranges
// (|k1|,|k2|,|k3| < 0.15) ten iterations land within 1e-4; very strong
// distortion may not converge within the budget.
func (c Coefficients) RemoveN(x, y float64, iterations int) (float64, float64) {
	xu, yu := x, y
	for i := 0; i < iterations; i++ {
		xd, yd := c.Apply(xu, yu)
		ex := x - xd
		ey := y - yd
		xu += ex
		yu += ey
		if ex*ex+ey*ey < removeTolerance {
			break
		}
	}
	return xu, yu
}
