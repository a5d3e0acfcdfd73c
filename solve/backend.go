// Package solve orchestrates camera solving: it validates the session,
// selects keyframes, delegates bundle adjustment to an external backend
// and post-processes the result into a SolveReport.
package solve

import (
	"math"

	"github.com/solvekit/matchmove/track"
)

// RefineFlags selects which intrinsics the backend refines during
// bundle adjustment.
type RefineFlags struct {
	FocalLength          bool
	PrincipalPoint       bool
	RadialDistortion     bool
	TangentialDistortion bool
}

// KeyframePair is the wide-baseline frame pair anchoring the solve.
type KeyframePair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// FrameResult is one frame of a solved camera path.
type FrameResult struct {
	Frame       int        `json:"frame"`
	Position    [3]float64 `json:"position"`
	Rotation    [3]float64 `json:"rotation"`
	FocalLength float64    `json:"focal_length"`
	// Error is the mean reprojection error on this frame, in pixels.
	Error float64 `json:"error"`
}

// valid reports whether the frame carries a usable error measurement.
func (r FrameResult) valid() bool {
	return !math.IsNaN(r.Error) && !math.IsInf(r.Error, 0) && r.Error >= 0
}

// Backend performs the actual bundle adjustment. It is an opaque black
// box: this package only selects keyframes and flags and post-processes
// the per-frame results.
type Backend interface {
	Solve(session *track.TrackingSession, keyframes KeyframePair, flags RefineFlags) ([]FrameResult, error)
}
