package tracker

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/solvekit/matchmove/track"
)

func panBackend() *SyntheticBackend {
	backend := NewSyntheticBackend()
	backend.Motion = func(frame int) (float64, float64) {
		// Simulated camera pan: 0.001 per frame in x
		return 0.001 * float64(frame), 0.0
	}
	return backend
}

func newTestTracker(t *testing.T, backend *SyntheticBackend) *PointTracker {
	t.Helper()
	pt, err := New(backend, backend, backend, DefaultOptions(), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	return pt
}

func newTestSession(t *testing.T, frameStart, frameEnd int) *track.TrackingSession {
	t.Helper()
	session, err := track.NewSession(track.Footage{
		Width: 1920, Height: 1080, FPS: 25.0,
		FrameStart: frameStart, FrameEnd: frameEnd,
	})
	if err != nil {
		t.Fatal(err)
	}
	return session
}

func TestAutoTrackPan(t *testing.T) {
	backend := panBackend()
	pt := newTestTracker(t, backend)
	session := newTestSession(t, 1, 20)

	if err := pt.AutoTrack(context.Background(), session); err != nil {
		t.Fatal(err)
	}

	correctNumOfTracks := backend.GridRows * backend.GridCols
	if len(session.Tracks) != correctNumOfTracks {
		t.Fatalf("incorrect number of tracks: %d, expected: %d", len(session.Tracks), correctNumOfTracks)
	}

	for _, tr := range session.Tracks {
		if tr.Len() != 20 {
			t.Errorf("track %s has %d points, expected 20", tr.Name(), tr.Len())
		}
		if tr.OKCount() != 20 {
			t.Errorf("track %s has %d OK points, expected 20", tr.Name(), tr.OKCount())
		}
		// Frames strictly increasing
		frames := tr.Frames()
		for i := 1; i < len(frames); i++ {
			if frames[i] <= frames[i-1] {
				t.Fatalf("track %s frames not strictly increasing: %v", tr.Name(), frames)
			}
		}
		// Position drifts by the pan delta
		first, _ := tr.PointAt(1)
		last, _ := tr.PointAt(20)
		wantDrift := 0.001 * 19.0
		if math.Abs((last.Pos.X-first.Pos.X)-wantDrift) > 1e-9 {
			t.Errorf("track %s drifted %f, expected %f", tr.Name(), last.Pos.X-first.Pos.X, wantDrift)
		}
	}
}

func TestDetectDeduplicates(t *testing.T) {
	backend := NewSyntheticBackend()
	pt := newTestTracker(t, backend)
	session := newTestSession(t, 1, 10)

	first, err := pt.Detect(session, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != backend.GridRows*backend.GridCols {
		t.Fatalf("incorrect number of seeded tracks: %d", len(first))
	}

	// Same frame, same features: the position grid must block all of them
	second, err := pt.Detect(session, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Errorf("re-detection seeded %d duplicate tracks", len(second))
	}
}

func TestLostIsStickyAndReplenished(t *testing.T) {
	backend := panBackend()
	backend.Lose = func(frame int, _ track.Point) bool {
		return frame == 5
	}
	pt := newTestTracker(t, backend)
	session := newTestSession(t, 1, 10)

	if err := pt.AutoTrack(context.Background(), session); err != nil {
		t.Fatal(err)
	}

	gridSize := backend.GridRows * backend.GridCols
	if len(session.Tracks) != 2*gridSize {
		t.Fatalf("incorrect number of tracks after replenishment: %d, expected: %d", len(session.Tracks), 2*gridSize)
	}

	lost := 0
	for _, tr := range session.Tracks {
		if !tr.IsLost() {
			continue
		}
		lost++
		// Lost on frame 5, never resumed
		if tr.LastFrame() != 5 {
			t.Errorf("lost track %s last frame is %d, expected 5", tr.Name(), tr.LastFrame())
		}
		p, _ := tr.PointAt(5)
		if p.Status != track.StatusMissing {
			t.Errorf("lost track %s final point status is %s", tr.Name(), p.Status)
		}
	}
	if lost != gridSize {
		t.Errorf("incorrect number of lost tracks: %d, expected: %d", lost, gridSize)
	}

	// Replacements cover the rest of the sequence
	for _, tr := range session.Tracks {
		if tr.IsLost() {
			continue
		}
		if tr.FirstFrame() != 5 || tr.LastFrame() != 10 {
			t.Errorf("replenished track %s spans [%d, %d], expected [5, 10]", tr.Name(), tr.FirstFrame(), tr.LastFrame())
		}
	}
}

func TestTrackBackward(t *testing.T) {
	backend := panBackend()
	pt := newTestTracker(t, backend)
	session := newTestSession(t, 1, 10)

	if _, err := pt.Detect(session, 10); err != nil {
		t.Fatal(err)
	}
	if err := pt.TrackBackward(context.Background(), session, 10, 1); err != nil {
		t.Fatal(err)
	}

	for _, tr := range session.Tracks {
		if tr.FirstFrame() != 1 || tr.LastFrame() != 10 {
			t.Errorf("track %s spans [%d, %d], expected [1, 10]", tr.Name(), tr.FirstFrame(), tr.LastFrame())
		}
		frames := tr.Frames()
		for i := 1; i < len(frames); i++ {
			if frames[i] <= frames[i-1] {
				t.Fatalf("track %s frames not strictly increasing: %v", tr.Name(), frames)
			}
		}
	}
}

func TestAutoTrackProgressAndCancellation(t *testing.T) {
	backend := panBackend()
	pt := newTestTracker(t, backend)
	session := newTestSession(t, 1, 10)

	calls := 0
	pt.Progress = func(done, total int) {
		calls++
		if total != 9 {
			t.Errorf("incorrect progress total: %d, expected 9", total)
		}
	}
	if err := pt.AutoTrack(context.Background(), session); err != nil {
		t.Fatal(err)
	}
	if calls != 9 {
		t.Errorf("incorrect number of progress calls: %d, expected 9", calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session2 := newTestSession(t, 1, 10)
	pt2 := newTestTracker(t, panBackend())
	if err := pt2.AutoTrack(ctx, session2); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewRequiresBackends(t *testing.T) {
	backend := NewSyntheticBackend()
	if _, err := New(nil, backend, backend, DefaultOptions(), nil); err == nil {
		t.Error("expected error for nil frame provider")
	}
	if _, err := New(backend, nil, backend, DefaultOptions(), nil); err == nil {
		t.Error("expected error for nil detector")
	}
	if _, err := New(backend, backend, nil, DefaultOptions(), nil); err == nil {
		t.Error("expected error for nil flow backend")
	}
}

func TestParseDetectorKind(t *testing.T) {
	for _, name := range []string{"fast", "harris", "sift", "orb", "brisk"} {
		kind, err := ParseDetectorKind(name)
		if err != nil {
			t.Errorf("can't parse %q: %v", name, err)
		}
		if kind.String() != name {
			t.Errorf("round trip mismatch: %q -> %q", name, kind.String())
		}
	}
	if _, err := ParseDetectorKind("surf"); err == nil {
		t.Error("expected error for unknown detector")
	}
}
