package track

import (
	"math"
	"path/filepath"
	"testing"
)

func TestAppendPrependOrdering(t *testing.T) {
	seed := TrackPoint{Frame: 10, Pos: NewPoint(0.5, 0.5), Status: StatusOK, Weight: 1.0}
	tr := NewTrack("Track 001", NewRegionAround(seed.Pos, 0.04), NewRegionAround(seed.Pos, 0.12), seed)

	if err := tr.Append(TrackPoint{Frame: 11, Pos: NewPoint(0.51, 0.5), Status: StatusOK, Weight: 1.0}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Prepend(TrackPoint{Frame: 9, Pos: NewPoint(0.49, 0.5), Status: StatusOK, Weight: 1.0}); err != nil {
		t.Fatal(err)
	}

	// Out-of-order insertions must be rejected
	if err := tr.Append(TrackPoint{Frame: 11}); err == nil {
		t.Error("expected error appending duplicate frame")
	}
	if err := tr.Prepend(TrackPoint{Frame: 15}); err == nil {
		t.Error("expected error prepending future frame")
	}

	frames := tr.Frames()
	expected := []int{9, 10, 11}
	if len(frames) != len(expected) {
		t.Fatalf("incorrect number of frames: %d, expected: %d", len(frames), len(expected))
	}
	for i := range expected {
		if frames[i] != expected[i] {
			t.Errorf("frame at index %d: %d, expected: %d", i, frames[i], expected[i])
		}
	}
	if tr.FirstFrame() != 9 || tr.LastFrame() != 11 {
		t.Errorf("incorrect frame bounds: [%d, %d]", tr.FirstFrame(), tr.LastFrame())
	}
}

func TestMarkMissingAndLost(t *testing.T) {
	seed := TrackPoint{Frame: 1, Pos: NewPoint(0.2, 0.3), Status: StatusOK, Weight: 1.0}
	tr := NewTrack("Track 001", NewRegionAround(seed.Pos, 0.04), NewRegionAround(seed.Pos, 0.12), seed)
	if err := tr.Append(TrackPoint{Frame: 2, Pos: NewPoint(0.21, 0.3), Status: StatusMissing, Weight: 1.0}); err != nil {
		t.Fatal(err)
	}

	if !tr.IsLost() {
		t.Error("track with trailing missing point should be lost")
	}
	if tr.OKCount() != 1 {
		t.Errorf("incorrect OK count: %d, expected: 1", tr.OKCount())
	}
	if tr.HasOKAt(2) {
		t.Error("missing point must not report OK")
	}

	tr.MarkMissing(1)
	if tr.OKCount() != 0 {
		t.Errorf("incorrect OK count after flip: %d, expected: 0", tr.OKCount())
	}
}

func TestColorForIndexDeterministic(t *testing.T) {
	a := ColorForIndex(7)
	b := ColorForIndex(7)
	if a != b {
		t.Errorf("color not deterministic: %+v vs %+v", a, b)
	}
	// Neighboring indices should land on well-separated hues
	c := ColorForIndex(8)
	if math.Abs(a.R-c.R)+math.Abs(a.G-c.G)+math.Abs(a.B-c.B) < 0.1 {
		t.Errorf("neighboring colors too close: %+v vs %+v", a, c)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	session, err := NewSession(Footage{Width: 1920, Height: 1080, FPS: 24.0, FrameStart: 1, FrameEnd: 50})
	if err != nil {
		t.Fatal(err)
	}
	session.CameraProfile = "Generic Full Frame"

	for i := 0; i < 3; i++ {
		seed := TrackPoint{Frame: 1, Pos: NewPoint(0.1*float64(i+1), 0.5), Status: StatusOK, Error: 0.2, Weight: 1.0}
		tr := NewTrack("Track 00"+string(rune('1'+i)), NewRegionAround(seed.Pos, 0.04), NewRegionAround(seed.Pos, 0.12), seed)
		for f := 2; f <= 10; f++ {
			status := StatusOK
			if f == 7 && i == 2 {
				status = StatusMissing
			}
			p := TrackPoint{Frame: f, Pos: NewPoint(0.1*float64(i+1)+0.001*float64(f), 0.5), Status: status, Error: 0.3, Weight: 1.0}
			if err := tr.Append(p); err != nil {
				t.Fatal(err)
			}
		}
		tr.SetCorrelation(0.8 + 0.05*float64(i))
		session.AddTrack(tr)
	}
	session.Tracks[1].Disable()

	path := filepath.Join(t.TempDir(), "session.json")
	if err := SaveSession(path, session); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadSession(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Footage != session.Footage {
		t.Errorf("footage mismatch: %+v vs %+v", loaded.Footage, session.Footage)
	}
	if loaded.CameraProfile != session.CameraProfile {
		t.Errorf("camera profile mismatch: %q vs %q", loaded.CameraProfile, session.CameraProfile)
	}
	if len(loaded.Tracks) != len(session.Tracks) {
		t.Fatalf("incorrect number of tracks: %d, expected: %d", len(loaded.Tracks), len(session.Tracks))
	}
	for i, orig := range session.Tracks {
		got := loaded.Tracks[i]
		if got.ID() != orig.ID() {
			t.Errorf("track %d id mismatch", i)
		}
		if got.Name() != orig.Name() {
			t.Errorf("track %d name mismatch: %q vs %q", i, got.Name(), orig.Name())
		}
		if got.Enabled() != orig.Enabled() {
			t.Errorf("track %d enabled mismatch", i)
		}
		if got.Correlation() != orig.Correlation() {
			t.Errorf("track %d correlation mismatch", i)
		}
		if got.Color() != orig.Color() {
			t.Errorf("track %d color mismatch", i)
		}
		if got.Len() != orig.Len() {
			t.Fatalf("track %d point count mismatch: %d vs %d", i, got.Len(), orig.Len())
		}
		for _, f := range orig.Frames() {
			op, _ := orig.PointAt(f)
			gp, ok := got.PointAt(f)
			if !ok {
				t.Fatalf("track %d lost point on frame %d", i, f)
			}
			if gp != op {
				t.Errorf("track %d point mismatch on frame %d: %+v vs %+v", i, f, gp, op)
			}
		}
	}
}

func TestSessionValidation(t *testing.T) {
	if _, err := NewSession(Footage{Width: 100, Height: 100, FrameStart: 10, FrameEnd: 5}); err == nil {
		t.Error("expected error for inverted frame range")
	}
	if _, err := NewSession(Footage{Width: 0, Height: 100, FrameStart: 1, FrameEnd: 5}); err == nil {
		t.Error("expected error for zero width")
	}
}
