package solve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/solvekit/matchmove/track"
)

// State is the orchestrator's solve state machine:
// Idle -> Validating -> Solving -> {Success | Failed}.
type State uint8

const (
	StateIdle State = iota
	StateValidating
	StateSolving
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSolving:
		return "solving"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// SolveReport is the immutable outcome of one solve invocation.
type SolveReport struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message,omitempty"`
	AverageError float64       `json:"average_error"`
	MinError     float64       `json:"min_error"`
	MaxError     float64       `json:"max_error"`
	FramesSolved int           `json:"frames_solved"`
	TracksUsed   int           `json:"tracks_used"`
	Keyframes    KeyframePair  `json:"keyframes"`
	Warnings     []string      `json:"warnings,omitempty"`
	Frames       []FrameResult `json:"frames,omitempty"`
}

// ProgressFunc reports solve stage progress in [0, 1].
type ProgressFunc func(stage string, fraction float64)

// Orchestrator drives a solve. A failed solve is reported, never retried;
// the caller decides whether to adjust inputs and re-invoke.
type Orchestrator struct {
	backend Backend
	logger  *slog.Logger
	state   State
}

// NewOrchestrator creates an orchestrator. A missing backend is a
// configuration error.
func NewOrchestrator(backend Backend, logger *slog.Logger) (*Orchestrator, error) {
	if backend == nil {
		return nil, errors.New("no camera solve backend configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		backend: backend,
		logger:  logger,
		state:   StateIdle,
	}, nil
}

// State returns the current solve state.
func (o *Orchestrator) State() State {
	return o.state
}

// minimum track counts below which Validate warns. Warnings never block
// a solve; callers can proceed anyway.
const (
	minSolveTracks    = 8
	minCoveredTracks  = 5
	minCoveredPerTrkN = 2
)

// Validate inspects the session and returns advisory warnings.
func (o *Orchestrator) Validate(session *track.TrackingSession) []string {
	var warnings []string
	active := session.ActiveTracks()
	if len(active) < minSolveTracks {
		warnings = append(warnings, fmt.Sprintf("only %d active tracks; solves are unreliable below %d", len(active), minSolveTracks))
	}
	covered := 0
	for _, t := range active {
		if t.OKCount() >= minCoveredPerTrkN {
			covered++
		}
	}
	if covered < minCoveredTracks {
		warnings = append(warnings, fmt.Sprintf("only %d tracks span at least %d frames; need %d for a stable keyframe pair", covered, minCoveredPerTrkN, minCoveredTracks))
	}
	return warnings
}

// AutoSelectKeyframes picks the frames at the 1/3 and 2/3 positions of the
// sorted list of frames covered by any OK point. A wide baseline without
// the extremes, which tend to have fewer surviving tracks. Returns false
// when no frame is covered at all.
func AutoSelectKeyframes(session *track.TrackingSession) (KeyframePair, bool) {
	coveredSet := make(map[int]struct{})
	for _, t := range session.ActiveTracks() {
		for _, f := range t.Frames() {
			if t.HasOKAt(f) {
				coveredSet[f] = struct{}{}
			}
		}
	}
	if len(coveredSet) < 2 {
		return KeyframePair{}, false
	}
	covered := make([]int, 0, len(coveredSet))
	for f := range coveredSet {
		covered = append(covered, f)
	}
	sort.Ints(covered)
	return KeyframePair{
		A: covered[len(covered)/3],
		B: covered[2*len(covered)/3],
	}, true
}

// Solve runs the full pipeline: validate, select keyframes, delegate to
// the backend, compute error statistics and package a report. It never
// returns an error for solve failure; failure is a report with
// Success=false.
func (o *Orchestrator) Solve(ctx context.Context, session *track.TrackingSession, flags RefineFlags, progress ProgressFunc) *SolveReport {
	report := &SolveReport{}

	o.state = StateValidating
	if progress != nil {
		progress("validating", 0.0)
	}
	report.Warnings = o.Validate(session)

	keyframes, ok := AutoSelectKeyframes(session)
	if !ok {
		o.state = StateFailed
		report.Message = "no frames are covered by tracked points"
		return report
	}
	report.Keyframes = keyframes

	if err := ctx.Err(); err != nil {
		o.state = StateFailed
		report.Message = fmt.Sprintf("solve cancelled: %v", err)
		return report
	}

	o.state = StateSolving
	if progress != nil {
		progress("solving", 0.3)
	}
	o.logger.Info("solving camera", "keyframe_a", keyframes.A, "keyframe_b", keyframes.B)

	results, err := o.backend.Solve(session, keyframes, flags)
	if err != nil {
		o.state = StateFailed
		report.Message = fmt.Sprintf("solve backend failed: %v", err)
		o.logger.Warn("solve failed", "error", err)
		return report
	}

	if progress != nil {
		progress("statistics", 0.8)
	}

	errs := make([]float64, 0, len(results))
	for _, r := range results {
		if r.valid() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		o.state = StateFailed
		report.Message = "backend returned no usable reconstruction"
		return report
	}

	report.Success = true
	report.Frames = results
	report.FramesSolved = len(errs)
	report.AverageError = stat.Mean(errs, nil)
	report.MinError = floats.Min(errs)
	report.MaxError = floats.Max(errs)
	for _, t := range session.ActiveTracks() {
		if t.OKCount() >= minCoveredPerTrkN {
			report.TracksUsed++
		}
	}

	o.state = StateSuccess
	if progress != nil {
		progress("done", 1.0)
	}
	o.logger.Info("solve finished",
		"frames", report.FramesSolved,
		"tracks", report.TracksUsed,
		"avg_error_px", report.AverageError)
	return report
}

// RefineFocalLength computes an error-weighted average of the per-frame
// focal estimates restricted to [from, to], weight = 1/(error+0.1).
// Falls back to the initial value when no samples land in the range.
func RefineFocalLength(initial float64, results []FrameResult, from, to int) float64 {
	weightedSum := 0.0
	weightTotal := 0.0
	for _, r := range results {
		if r.Frame < from || r.Frame > to || !r.valid() {
			continue
		}
		w := 1.0 / (r.Error + 0.1)
		weightedSum += r.FocalLength * w
		weightTotal += w
	}
	if weightTotal == 0 {
		return initial
	}
	return weightedSum / weightTotal
}
