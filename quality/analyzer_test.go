package quality

import (
	"strings"
	"testing"

	"github.com/solvekit/matchmove/track"
)

func makeSession(t *testing.T, frameEnd int) *track.TrackingSession {
	t.Helper()
	session, err := track.NewSession(track.Footage{
		Width: 1920, Height: 1080, FPS: 24.0,
		FrameStart: 1, FrameEnd: frameEnd,
	})
	if err != nil {
		t.Fatal(err)
	}
	return session
}

func addTrack(t *testing.T, session *track.TrackingSession, name string, start, end int, corr, pointErr float64) *track.Track {
	t.Helper()
	seed := track.TrackPoint{Frame: start, Pos: track.NewPoint(0.5, 0.5), Status: track.StatusOK, Error: pointErr, Weight: 1.0}
	tr := track.NewTrack(name, track.NewRegionAround(seed.Pos, 0.04), track.NewRegionAround(seed.Pos, 0.12), seed)
	for f := start + 1; f <= end; f++ {
		p := track.TrackPoint{Frame: f, Pos: track.NewPoint(0.5+0.001*float64(f), 0.5), Status: track.StatusOK, Error: pointErr, Weight: 1.0}
		if err := tr.Append(p); err != nil {
			t.Fatal(err)
		}
	}
	tr.SetCorrelation(corr)
	session.AddTrack(tr)
	return tr
}

func TestMetrics(t *testing.T) {
	session := makeSession(t, 100)
	addTrack(t, session, "long", 1, 100, 0.9, 0.4)
	addTrack(t, session, "short", 1, 10, 0.8, 0.4)
	addTrack(t, session, "noisy", 1, 100, 0.9, 3.5)

	metrics := NewAnalyzer(session, nil).Metrics()
	if len(metrics) != 3 {
		t.Fatalf("incorrect number of metric rows: %d", len(metrics))
	}

	byName := map[string]TrackMetrics{}
	for _, m := range metrics {
		byName[m.Name] = m
	}

	long := byName["long"]
	if long.MarkerCount != 100 || long.TrackLengthPercent != 1.0 || long.IsShort || long.IsHighError {
		t.Errorf("incorrect metrics for long track: %+v", long)
	}
	short := byName["short"]
	if !short.IsShort {
		t.Errorf("10/100 frames must be short: %+v", short)
	}
	noisy := byName["noisy"]
	if !noisy.IsHighError {
		t.Errorf("3.5px average error must be high-error: %+v", noisy)
	}
}

func TestReadinessScoreMonotonicity(t *testing.T) {
	session := makeSession(t, 100)
	for i := 0; i < 10; i++ {
		addTrack(t, session, "good", 1, 100, 0.9, 0.4)
	}
	before := NewAnalyzer(session, nil).ReadinessScore()

	// Adding a high-error track never increases the score
	addTrack(t, session, "bad", 1, 100, 0.9, 5.0)
	after := NewAnalyzer(session, nil).ReadinessScore()
	if after > before {
		t.Errorf("score increased after adding high-error track: %f -> %f", before, after)
	}
}

func TestReadinessScorePenalties(t *testing.T) {
	// 10 healthy tracks: full score
	session := makeSession(t, 100)
	for i := 0; i < 10; i++ {
		addTrack(t, session, "good", 1, 100, 0.9, 0.4)
	}
	if score := NewAnalyzer(session, nil).ReadinessScore(); score != 100.0 {
		t.Errorf("healthy session score: %f, expected 100", score)
	}

	// 5 tracks: 3 below minimum costs 30
	sparse := makeSession(t, 100)
	for i := 0; i < 5; i++ {
		addTrack(t, sparse, "good", 1, 100, 0.9, 0.4)
	}
	if score := NewAnalyzer(sparse, nil).ReadinessScore(); score != 70.0 {
		t.Errorf("sparse session score: %f, expected 70", score)
	}

	// Score clamps at 0
	awful := makeSession(t, 100)
	addTrack(t, awful, "bad", 1, 5, 0.2, 9.0)
	if score := NewAnalyzer(awful, nil).ReadinessScore(); score < 0 {
		t.Errorf("score below clamp: %f", score)
	}
}

func TestFiltersDisableNotDelete(t *testing.T) {
	session := makeSession(t, 100)
	addTrack(t, session, "good", 1, 100, 0.9, 0.4)
	addTrack(t, session, "weak", 1, 100, 0.5, 0.4)
	addTrack(t, session, "stub", 1, 4, 0.9, 0.4)

	analyzer := NewAnalyzer(session, nil)
	if n := analyzer.FilterByCorrelation(0.75); n != 1 {
		t.Errorf("incorrect number disabled by correlation: %d, expected 1", n)
	}
	if n := analyzer.FilterShort(10); n != 1 {
		t.Errorf("incorrect number disabled as short: %d, expected 1", n)
	}

	// Soft delete: tracks stay in the session
	if len(session.Tracks) != 3 {
		t.Fatalf("filtering removed tracks from the session: %d left", len(session.Tracks))
	}
	if len(session.ActiveTracks()) != 1 {
		t.Errorf("incorrect number of active tracks: %d, expected 1", len(session.ActiveTracks()))
	}
}

func TestRecommendations(t *testing.T) {
	session := makeSession(t, 100)
	addTrack(t, session, "lonely", 1, 10, 0.5, 4.0)

	recs := NewAnalyzer(session, nil).Recommendations()
	if len(recs) != 4 {
		t.Fatalf("incorrect number of recommendations: %d, expected 4: %v", len(recs), recs)
	}
	// Advisory order: track count, short, error, correlation
	if !strings.Contains(recs[0], "active tracks") {
		t.Errorf("first recommendation should address track count: %q", recs[0])
	}
	if !strings.Contains(recs[1], "short") {
		t.Errorf("second recommendation should address short tracks: %q", recs[1])
	}
	if !strings.Contains(recs[2], "error") {
		t.Errorf("third recommendation should address match error: %q", recs[2])
	}
	if !strings.Contains(recs[3], "correlation") {
		t.Errorf("fourth recommendation should address correlation: %q", recs[3])
	}

	healthy := makeSession(t, 100)
	for i := 0; i < 10; i++ {
		addTrack(t, healthy, "good", 1, 100, 0.9, 0.4)
	}
	if recs := NewAnalyzer(healthy, nil).Recommendations(); len(recs) != 0 {
		t.Errorf("healthy session produced recommendations: %v", recs)
	}
}
