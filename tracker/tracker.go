package tracker

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/solvekit/matchmove/track"
)

// Options configures a PointTracker.
type Options struct {
	Detector DetectorKind
	// MaxFeatures caps the number of tracks seeded per detection pass.
	MaxFeatures int
	// MinTracks triggers replenishment during AutoTrack when the count of
	// tracks with an OK point on the current frame drops below it.
	MinTracks int
	// PatternSize and SearchSize are normalized region extents for new tracks.
	PatternSize float64
	SearchSize  float64
}

// DefaultOptions returns the tracker defaults.
func DefaultOptions() Options {
	return Options{
		Detector:    DetectorFAST,
		MaxFeatures: 64,
		MinTracks:   8,
		PatternSize: 0.04,
		SearchSize:  0.12,
	}
}

// ProgressFunc is invoked once per processed frame.
type ProgressFunc func(done, total int)

// PointTracker drives detection and frame-by-frame tracking. Per-point
// state machine: Seeded -> Tracked -> {Tracked | Lost}; Lost is sticky,
// a lost point is never resumed.
type PointTracker struct {
	frames   FrameProvider
	detector FeatureDetector
	flow     OpticalFlow
	opts     Options
	logger   *slog.Logger

	predictors map[uuid.UUID]*patternPredictor
	nameSeq    int

	// Progress, when set, is called once per frame transition.
	Progress ProgressFunc
}

// New creates a PointTracker. Missing backends are a configuration error,
// surfaced here rather than mid-pipeline.
func New(frames FrameProvider, detector FeatureDetector, flow OpticalFlow, opts Options, logger *slog.Logger) (*PointTracker, error) {
	if frames == nil {
		return nil, errors.New("no frame provider configured")
	}
	if detector == nil {
		return nil, errors.New("no feature detection backend configured")
	}
	if flow == nil {
		return nil, errors.New("no optical flow backend configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = DefaultOptions().MaxFeatures
	}
	if opts.MinTracks <= 0 {
		opts.MinTracks = DefaultOptions().MinTracks
	}
	if opts.PatternSize <= 0 {
		opts.PatternSize = DefaultOptions().PatternSize
	}
	if opts.SearchSize <= 0 {
		opts.SearchSize = DefaultOptions().SearchSize
	}
	return &PointTracker{
		frames:     frames,
		detector:   detector,
		flow:       flow,
		opts:       opts,
		logger:     logger,
		predictors: make(map[uuid.UUID]*patternPredictor),
	}, nil
}

// gridKey is a coarse 2-decimal position cell used to deduplicate
// detections against existing track positions.
type gridKey struct {
	X int
	Y int
}

func gridKeyFor(p track.Point) gridKey {
	return gridKey{
		X: int(math.Round(p.X * 100.0)),
		Y: int(math.Round(p.Y * 100.0)),
	}
}

// Detect runs the detection backend on the given frame and seeds new
// tracks for features that do not collide with existing active tracks on
// the dedup grid. Returns the newly created tracks.
func (pt *PointTracker) Detect(session *track.TrackingSession, frame int) ([]*track.Track, error) {
	img, err := pt.frames.Frame(frame)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read frame %d", frame)
	}
	features, err := pt.detector.Detect(img, frame, pt.opts.MaxFeatures)
	if err != nil {
		return nil, errors.Wrapf(err, "feature detection failed on frame %d", frame)
	}

	occupied := make(map[gridKey]struct{})
	for _, t := range session.Tracks {
		if !t.Enabled() || t.IsLost() {
			continue
		}
		if p, ok := t.PointAt(frame); ok && p.Status == track.StatusOK {
			occupied[gridKeyFor(p.Pos)] = struct{}{}
			continue
		}
		if pred, ok := pt.predictors[t.ID()]; ok {
			occupied[gridKeyFor(pred.Predict())] = struct{}{}
		}
	}

	// Strongest features first, capped at MaxFeatures.
	candidates := make(strengthHeap, 0, len(features))
	for _, f := range features {
		candidates.Push(f)
	}

	dt := 1.0
	if session.Footage.FPS > 0 {
		dt = 1.0 / session.Footage.FPS
	}

	created := make([]*track.Track, 0, pt.opts.MaxFeatures)
	for candidates.Len() > 0 && len(created) < pt.opts.MaxFeatures {
		f := candidates.Pop()
		key := gridKeyFor(f.Pos)
		if _, taken := occupied[key]; taken {
			continue
		}
		occupied[key] = struct{}{}

		pt.nameSeq++
		seed := track.TrackPoint{
			Frame:  frame,
			Pos:    f.Pos,
			Status: track.StatusOK,
			Weight: 1.0,
		}
		tr := track.NewTrack(
			fmt.Sprintf("Track %03d", pt.nameSeq),
			track.NewRegionAround(f.Pos, pt.opts.PatternSize),
			track.NewRegionAround(f.Pos, pt.opts.SearchSize),
			seed,
		)
		session.AddTrack(tr)
		pt.predictors[tr.ID()] = newPatternPredictor(f.Pos, pt.opts.PatternSize, dt)
		created = append(created, tr)
	}

	pt.logger.Debug("detected features", "frame", frame, "found", len(features), "seeded", len(created))
	return created, nil
}

// TrackForward tracks all active tracks from frame `from` to frame `to`.
func (pt *PointTracker) TrackForward(ctx context.Context, session *track.TrackingSession, from, to int) error {
	return pt.trackRange(ctx, session, from, to, true)
}

// TrackBackward tracks all active tracks from frame `from` down to `to`.
func (pt *PointTracker) TrackBackward(ctx context.Context, session *track.TrackingSession, from, to int) error {
	return pt.trackRange(ctx, session, from, to, false)
}

func (pt *PointTracker) trackRange(ctx context.Context, session *track.TrackingSession, from, to int, forward bool) error {
	if forward && to < from {
		return errors.Errorf("forward range %d..%d is inverted", from, to)
	}
	if !forward && to > from {
		return errors.Errorf("backward range %d..%d is inverted", from, to)
	}

	prevImg, err := pt.frames.Frame(from)
	if err != nil {
		return errors.Wrapf(err, "can't read frame %d", from)
	}

	step := 1
	if !forward {
		step = -1
	}
	total := (to - from) * step
	done := 0

	for frame := from; frame != to; frame += step {
		// Cooperative cancellation between frame iterations, never
		// mid-backend-call.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next := frame + step
		currImg, err := pt.frames.Frame(next)
		if err != nil {
			return errors.Wrapf(err, "can't read frame %d", next)
		}
		if err := pt.trackStep(session, prevImg, currImg, frame, next, forward); err != nil {
			return err
		}
		prevImg = currImg

		done++
		if pt.Progress != nil {
			pt.Progress(done, total)
		}
	}
	return nil
}

// trackStep advances every trackable track by one frame transition with a
// single batched flow-backend call.
func (pt *PointTracker) trackStep(session *track.TrackingSession, prevImg, currImg image.Image, prevFrame, currFrame int, forward bool) error {
	batch := make([]*track.Track, 0, len(session.Tracks))
	points := make([]track.Point, 0, len(session.Tracks))
	for _, t := range session.Tracks {
		if !t.Enabled() || t.IsLost() {
			continue
		}
		p, ok := t.PointAt(prevFrame)
		if !ok || p.Status != track.StatusOK {
			continue
		}
		if _, exists := t.PointAt(currFrame); exists {
			continue
		}
		batch = append(batch, t)
		points = append(points, p.Pos)
	}
	if len(batch) == 0 {
		return nil
	}

	// Advance predictors before matching so a failed match can fall back
	// to the motion-compensated estimate.
	predicted := make([]track.Point, len(batch))
	for i, t := range batch {
		if pred, ok := pt.predictors[t.ID()]; ok {
			predicted[i] = pred.Predict()
		} else {
			predicted[i] = points[i]
		}
	}

	newPoints, status, flowErrs, err := pt.flow.Track(prevImg, currImg, prevFrame, currFrame, points)
	if err != nil {
		return errors.Wrapf(err, "optical flow failed on transition %d -> %d", prevFrame, currFrame)
	}
	if len(newPoints) != len(batch) || len(status) != len(batch) || len(flowErrs) != len(batch) {
		return errors.Errorf("flow backend returned %d/%d/%d results for %d points",
			len(newPoints), len(status), len(flowErrs), len(batch))
	}

	lost := 0
	for i, t := range batch {
		pos := newPoints[i]
		if math.IsNaN(pos.X) || math.IsNaN(pos.Y) {
			pos = predicted[i]
		}
		point := track.TrackPoint{
			Frame:  currFrame,
			Pos:    pos,
			Error:  flowErrs[i],
			Weight: 1.0,
		}
		if status[i] {
			point.Status = track.StatusOK
			if pred, ok := pt.predictors[t.ID()]; ok {
				if err := pred.Observe(pos, pt.opts.PatternSize); err != nil {
					return err
				}
			}
			// Running correlation estimate from the match error.
			t.SetCorrelation(0.9*t.Correlation() + 0.1/(1.0+flowErrs[i]))
		} else {
			point.Status = track.StatusMissing
			lost++
		}
		if forward {
			err = t.Append(point)
		} else {
			err = t.Prepend(point)
		}
		if err != nil {
			return errors.Wrapf(err, "can't record point for track %s", t.Name())
		}
	}
	if lost > 0 {
		pt.logger.Debug("lost points", "transition", fmt.Sprintf("%d->%d", prevFrame, currFrame), "lost", lost)
	}
	return nil
}

// AutoTrack orchestrates detection and forward tracking across the whole
// session, replenishing features whenever the count of tracks with an OK
// point on the current frame drops below MinTracks.
func (pt *PointTracker) AutoTrack(ctx context.Context, session *track.TrackingSession) error {
	start := session.Footage.FrameStart
	end := session.Footage.FrameEnd

	if _, err := pt.Detect(session, start); err != nil {
		return err
	}

	prevImg, err := pt.frames.Frame(start)
	if err != nil {
		return errors.Wrapf(err, "can't read frame %d", start)
	}

	total := end - start
	done := 0
	for frame := start; frame < end; frame++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if session.ActiveCountAt(frame) < pt.opts.MinTracks {
			created, err := pt.Detect(session, frame)
			if err != nil {
				return err
			}
			if len(created) > 0 {
				pt.logger.Info("replenished tracks", "frame", frame, "new", len(created))
			}
		}

		currImg, err := pt.frames.Frame(frame + 1)
		if err != nil {
			return errors.Wrapf(err, "can't read frame %d", frame+1)
		}
		if err := pt.trackStep(session, prevImg, currImg, frame, frame+1, true); err != nil {
			return err
		}
		prevImg = currImg

		done++
		if pt.Progress != nil {
			pt.Progress(done, total)
		}
	}

	pt.logger.Info("auto-track finished", "frames", total+1, "tracks", len(session.Tracks))
	return nil
}
