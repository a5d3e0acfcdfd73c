// Package quality scores and filters tracks before solving. The analyzer
// is a pure function of the track set; it never mutates tracks except when
// explicitly asked to disable them, and disabling is a soft state so
// recommendations stay auditable.
package quality

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/solvekit/matchmove/track"
)

const (
	// shortTrackFraction marks a track short when it covers less than
	// this fraction of the session duration.
	shortTrackFraction = 0.3
	// highErrorPx marks a track high-error above this average match error.
	highErrorPx = 2.0
	// lowCorrelationMin is the correlation floor used by the readiness score.
	lowCorrelationMin = 0.75
	// minGoodTracks is the track count a solve wants at minimum.
	minGoodTracks = 8
)

// TrackMetrics summarizes one track.
type TrackMetrics struct {
	Name               string
	MarkerCount        int
	TrackLengthPercent float64
	AvgCorrelation     float64
	AvgError           float64
	IsShort            bool
	IsHighError        bool
}

// Analyzer computes quality metrics over a session's enabled tracks.
type Analyzer struct {
	session *track.TrackingSession
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer for the session.
func NewAnalyzer(session *track.TrackingSession, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		session: session,
		logger:  logger,
	}
}

func (a *Analyzer) metricsFor(t *track.Track) TrackMetrics {
	duration := a.session.Footage.Duration()
	markers := t.OKCount()

	errs := make([]float64, 0, t.Len())
	for _, f := range t.Frames() {
		if p, ok := t.PointAt(f); ok && p.Status == track.StatusOK {
			errs = append(errs, p.Error)
		}
	}
	avgErr := 0.0
	if len(errs) > 0 {
		avgErr = stat.Mean(errs, nil)
	}

	lengthPercent := 0.0
	if duration > 0 {
		lengthPercent = float64(markers) / float64(duration)
	}

	return TrackMetrics{
		Name:               t.Name(),
		MarkerCount:        markers,
		TrackLengthPercent: lengthPercent,
		AvgCorrelation:     t.Correlation(),
		AvgError:           avgErr,
		IsShort:            lengthPercent < shortTrackFraction,
		IsHighError:        avgErr > highErrorPx,
	}
}

// Metrics returns per-track metrics for every enabled track.
func (a *Analyzer) Metrics() []TrackMetrics {
	active := a.session.ActiveTracks()
	out := make([]TrackMetrics, 0, len(active))
	for _, t := range active {
		out = append(out, a.metricsFor(t))
	}
	return out
}

// FilterByCorrelation disables tracks whose correlation is below the
// threshold. Returns the number of tracks disabled.
func (a *Analyzer) FilterByCorrelation(minCorrelation float64) int {
	disabled := 0
	for _, t := range a.session.ActiveTracks() {
		if t.Correlation() < minCorrelation {
			t.Disable()
			disabled++
		}
	}
	if disabled > 0 {
		a.logger.Info("disabled low-correlation tracks", "count", disabled, "threshold", minCorrelation)
	}
	return disabled
}

// FilterShort disables tracks with fewer than minFrames OK points.
// Returns the number of tracks disabled.
func (a *Analyzer) FilterShort(minFrames int) int {
	disabled := 0
	for _, t := range a.session.ActiveTracks() {
		if t.OKCount() < minFrames {
			t.Disable()
			disabled++
		}
	}
	if disabled > 0 {
		a.logger.Info("disabled short tracks", "count", disabled, "min_frames", minFrames)
	}
	return disabled
}

// ratios returns the short, high-error and low-correlation fractions of
// the enabled track set.
func (a *Analyzer) ratios() (short, highErr, lowCorr float64, active int) {
	metrics := a.Metrics()
	active = len(metrics)
	if active == 0 {
		return 0, 0, 0, 0
	}
	for _, m := range metrics {
		if m.IsShort {
			short++
		}
		if m.IsHighError {
			highErr++
		}
		if m.AvgCorrelation < lowCorrelationMin {
			lowCorr++
		}
	}
	n := float64(active)
	return short / n, highErr / n, lowCorr / n, active
}

// ReadinessScore estimates how likely a solve is to succeed, in [0, 100].
// Starts at 100, subtracts 10 per track below 8 active tracks, then
// 30x the short-track ratio, 20x the high-error ratio and 15x the
// low-correlation ratio.
func (a *Analyzer) ReadinessScore() float64 {
	short, highErr, lowCorr, active := a.ratios()

	score := 100.0
	if active < minGoodTracks {
		score -= 10.0 * float64(minGoodTracks-active)
	}
	score -= 30.0 * short
	score -= 20.0 * highErr
	score -= 15.0 * lowCorr

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Recommendations returns ordered advisory strings for common deficiencies.
// Reporting only; nothing is ever auto-applied.
func (a *Analyzer) Recommendations() []string {
	short, highErr, lowCorr, active := a.ratios()

	var out []string
	if active < minGoodTracks {
		out = append(out, fmt.Sprintf("only %d active tracks; detect more features (at least %d recommended)", active, minGoodTracks))
	}
	if short > 0.3 {
		out = append(out, fmt.Sprintf("%.0f%% of tracks are short; extend tracking range or re-track lost features", short*100))
	}
	if highErr > 0.2 {
		out = append(out, fmt.Sprintf("%.0f%% of tracks have high match error; tighten search regions or disable them", highErr*100))
	}
	if lowCorr > 0.2 {
		out = append(out, fmt.Sprintf("%.0f%% of tracks have low correlation; consider filtering below %.2f", lowCorr*100, lowCorrelationMin))
	}
	return out
}
