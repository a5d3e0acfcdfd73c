package solve

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/solvekit/matchmove/track"
)

func makePanSession(t *testing.T, numTracks, frameEnd int) *track.TrackingSession {
	t.Helper()
	session, err := track.NewSession(track.Footage{
		Width: 1920, Height: 1080, FPS: 24.0,
		FrameStart: 1, FrameEnd: frameEnd,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < numTracks; i++ {
		base := track.NewPoint(0.1+0.08*float64(i), 0.5)
		seed := track.TrackPoint{Frame: 1, Pos: base, Status: track.StatusOK, Error: 0.4, Weight: 1.0}
		tr := track.NewTrack("track", track.NewRegionAround(base, 0.04), track.NewRegionAround(base, 0.12), seed)
		for f := 2; f <= frameEnd; f++ {
			// Linear pan of 0.001/frame
			p := track.TrackPoint{
				Frame:  f,
				Pos:    track.NewPoint(base.X+0.001*float64(f-1), base.Y),
				Status: track.StatusOK,
				Error:  0.4,
				Weight: 1.0,
			}
			if err := tr.Append(p); err != nil {
				t.Fatal(err)
			}
		}
		tr.SetCorrelation(0.85)
		session.AddTrack(tr)
	}
	return session
}

func TestAutoSelectKeyframes(t *testing.T) {
	session := makePanSession(t, 10, 100)
	pair, ok := AutoSelectKeyframes(session)
	if !ok {
		t.Fatal("no keyframes selected")
	}
	// Parallax heuristic: 1/3 and 2/3 of the covered frame list
	if pair.A < 33 || pair.A > 35 {
		t.Errorf("keyframe A = %d, expected near 33", pair.A)
	}
	if pair.B < 66 || pair.B > 68 {
		t.Errorf("keyframe B = %d, expected near 67", pair.B)
	}

	empty, err := track.NewSession(track.Footage{Width: 100, Height: 100, FrameStart: 1, FrameEnd: 10})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := AutoSelectKeyframes(empty); ok {
		t.Error("keyframes selected on empty session")
	}
}

func TestValidateWarnings(t *testing.T) {
	orch, err := NewOrchestrator(NewCircularPathBackend(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// 3 tracks trips both the track-count and keyframe-coverage warnings
	sparse := makePanSession(t, 3, 100)
	warnings := orch.Validate(sparse)
	if len(warnings) != 2 {
		t.Errorf("incorrect number of warnings for sparse session: %d: %v", len(warnings), warnings)
	}

	// 6 tracks: below the track minimum but enough keyframe coverage
	mid := makePanSession(t, 6, 100)
	if warnings := orch.Validate(mid); len(warnings) != 1 {
		t.Errorf("incorrect number of warnings for mid session: %d: %v", len(warnings), warnings)
	}

	healthy := makePanSession(t, 10, 100)
	if warnings := orch.Validate(healthy); len(warnings) != 0 {
		t.Errorf("healthy session produced warnings: %v", warnings)
	}
}

func TestSolveSuccess(t *testing.T) {
	orch, err := NewOrchestrator(NewCircularPathBackend(), nil)
	if err != nil {
		t.Fatal(err)
	}
	session := makePanSession(t, 10, 100)

	var stages []string
	report := orch.Solve(context.Background(), session, RefineFlags{FocalLength: true}, func(stage string, _ float64) {
		stages = append(stages, stage)
	})

	if !report.Success {
		t.Fatalf("solve failed: %s", report.Message)
	}
	if orch.State() != StateSuccess {
		t.Errorf("incorrect final state: %s", orch.State())
	}
	if report.FramesSolved != 100 {
		t.Errorf("incorrect frames solved: %d, expected 100", report.FramesSolved)
	}
	if report.TracksUsed != 10 {
		t.Errorf("incorrect tracks used: %d, expected 10", report.TracksUsed)
	}
	if report.MinError > report.AverageError || report.AverageError > report.MaxError {
		t.Errorf("inconsistent error stats: min=%f avg=%f max=%f", report.MinError, report.AverageError, report.MaxError)
	}
	if math.IsNaN(report.AverageError) || report.AverageError <= 0 {
		t.Errorf("average error not finite positive: %f", report.AverageError)
	}
	if len(stages) == 0 || stages[len(stages)-1] != "done" {
		t.Errorf("incorrect progress stages: %v", stages)
	}
}

type failingBackend struct{}

func (failingBackend) Solve(*track.TrackingSession, KeyframePair, RefineFlags) ([]FrameResult, error) {
	return nil, errors.New("reconstruction diverged")
}

func TestSolveFailure(t *testing.T) {
	orch, err := NewOrchestrator(failingBackend{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	session := makePanSession(t, 10, 50)

	report := orch.Solve(context.Background(), session, RefineFlags{}, nil)
	if report.Success {
		t.Fatal("expected failed report")
	}
	if orch.State() != StateFailed {
		t.Errorf("incorrect final state: %s", orch.State())
	}
	if report.Message == "" {
		t.Error("failed report carries no message")
	}
}

func TestSolveEmptySession(t *testing.T) {
	orch, err := NewOrchestrator(NewCircularPathBackend(), nil)
	if err != nil {
		t.Fatal(err)
	}
	empty, err := track.NewSession(track.Footage{Width: 100, Height: 100, FrameStart: 1, FrameEnd: 10})
	if err != nil {
		t.Fatal(err)
	}
	report := orch.Solve(context.Background(), empty, RefineFlags{}, nil)
	if report.Success {
		t.Error("solve succeeded with no tracks")
	}
}

func TestNewOrchestratorRequiresBackend(t *testing.T) {
	if _, err := NewOrchestrator(nil, nil); err == nil {
		t.Error("expected error for nil backend")
	}
}

func TestRefineFocalLength(t *testing.T) {
	results := []FrameResult{
		{Frame: 1, FocalLength: 35.0, Error: 0.1},
		{Frame: 2, FocalLength: 36.0, Error: 0.1},
		{Frame: 3, FocalLength: 50.0, Error: 9.9},
	}

	// Low-error frames dominate the weighted mean
	refined := RefineFocalLength(32.0, results, 1, 3)
	if refined <= 35.0 || refined >= 36.5 {
		t.Errorf("refined focal %f outside expected band", refined)
	}

	// Range restriction
	only2 := RefineFocalLength(32.0, results, 2, 2)
	if math.Abs(only2-36.0) > 1e-9 {
		t.Errorf("range-restricted refinement = %f, expected 36", only2)
	}

	// Fallback when no samples are in range
	if fallback := RefineFocalLength(32.0, results, 100, 200); fallback != 32.0 {
		t.Errorf("fallback = %f, expected initial 32", fallback)
	}
}
