package solve

import (
	"math"

	"github.com/solvekit/matchmove/track"
)

// CircularPathBackend is a deterministic bundle-adjustment stand-in: the
// solved camera orbits the origin once over the session range with a
// scripted error profile. It makes solver orchestration fully testable
// without a reconstruction library.
type CircularPathBackend struct {
	// Radius of the camera orbit in scene units.
	Radius float64
	// FocalLength is the base solved focal length in millimeters.
	FocalLength float64
	// BaseError is the minimum per-frame reprojection error in pixels.
	BaseError float64
}

// NewCircularPathBackend returns a backend with a 5-unit orbit, 35mm
// focal length and sub-pixel error floor.
func NewCircularPathBackend() *CircularPathBackend {
	return &CircularPathBackend{
		Radius:      5.0,
		FocalLength: 35.0,
		BaseError:   0.3,
	}
}

// Solve produces one FrameResult per session frame along the orbit.
func (b *CircularPathBackend) Solve(session *track.TrackingSession, _ KeyframePair, flags RefineFlags) ([]FrameResult, error) {
	footage := session.Footage
	duration := float64(footage.Duration())
	results := make([]FrameResult, 0, footage.Duration())
	for frame := footage.FrameStart; frame <= footage.FrameEnd; frame++ {
		t := float64(frame-footage.FrameStart) / duration
		angle := 2.0 * math.Pi * t

		focal := b.FocalLength
		if flags.FocalLength {
			// Refinement wobble around the base value
			focal += 0.4 * math.Sin(angle*3.0)
		}
		results = append(results, FrameResult{
			Frame:       frame,
			Position:    [3]float64{b.Radius * math.Cos(angle), b.Radius * math.Sin(angle), 1.5},
			Rotation:    [3]float64{0, 0, angle},
			FocalLength: focal,
			Error:       b.BaseError + 0.2*math.Abs(math.Sin(angle*2.0)),
		})
	}
	return results, nil
}
