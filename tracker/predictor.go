package tracker

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"

	"github.com/solvekit/matchmove/track"
)

// patternPredictor wraps an 8-D Kalman filter over a track's pattern
// region. State vector: [cx, cy, w, h, vx, vy, vw, vh]. The prediction
// gives replenishment dedup a motion-compensated position and supplies a
// fallback position when the flow backend loses the point.
type patternPredictor struct {
	kf *kalman_filter.KalmanBBox
}

func newPatternPredictor(pos track.Point, size float64, dt float64) *patternPredictor {
	// Kalman filter props
	uCx := 1.0
	uCy := 1.0
	uW := 0.0
	uH := 0.0
	stdDevA := 2.0
	stdDevMCx := 0.1
	stdDevMCy := 0.1
	stdDevMW := 0.1
	stdDevMH := 0.1
	kf := kalman_filter.NewKalmanBBox(
		dt, uCx, uCy, uW, uH,
		stdDevA, stdDevMCx, stdDevMCy, stdDevMW, stdDevMH,
		kalman_filter.WithStateBBox(pos.X, pos.Y, size, size),
	)
	return &patternPredictor{kf: kf}
}

// Predict advances the filter one step and returns the predicted pattern
// center.
func (p *patternPredictor) Predict() track.Point {
	p.kf.Predict()
	cx, cy, _, _ := p.kf.GetState()
	return track.Point{X: cx, Y: cy}
}

// Observe feeds a measured pattern position back into the filter.
func (p *patternPredictor) Observe(pos track.Point, size float64) error {
	if err := p.kf.Update(pos.X, pos.Y, size, size); err != nil {
		return errors.Wrap(err, "can't update pattern predictor")
	}
	return nil
}
