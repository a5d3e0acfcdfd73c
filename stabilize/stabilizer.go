package stabilize

import (
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/solvekit/matchmove/track"
)

// Options configures a Stabilizer. Smoothing factors are 0-1 strengths.
type Options struct {
	SmoothTranslation float64
	SmoothRotation    float64
	SmoothScale       float64
	// Anchor is the reference frame for global motion; 0 means the
	// session's first frame.
	Anchor int
	// Invert makes Correction return the raw-minus-smoothed delta itself
	// instead of its inverse.
	Invert bool
}

// StabilizationData holds the analyzed and smoothed per-frame motion.
// Raw and Smoothed share the same key set.
type StabilizationData struct {
	Raw        map[int]Transform2D
	Smoothed   map[int]Transform2D
	FrameStart int
	FrameEnd   int
	Width      int
	Height     int
}

// Stabilizer derives a smoothed 2D stabilization from track data.
type Stabilizer struct {
	session *track.TrackingSession
	opts    Options
	logger  *slog.Logger
}

// New creates a Stabilizer for the session.
func New(session *track.TrackingSession, opts Options, logger *slog.Logger) *Stabilizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Anchor == 0 {
		opts.Anchor = session.Footage.FrameStart
	}
	return &Stabilizer{
		session: session,
		opts:    opts,
		logger:  logger,
	}
}

// Analyze computes raw global motion relative to the anchor frame and its
// smoothed counterpart.
func (s *Stabilizer) Analyze() (*StabilizationData, error) {
	footage := s.session.Footage
	if !footage.Contains(s.opts.Anchor) {
		return nil, errors.Errorf("anchor frame %d outside footage range [%d, %d]",
			s.opts.Anchor, footage.FrameStart, footage.FrameEnd)
	}
	if len(s.session.ActiveTracks()) < 2 {
		return nil, errors.New("stabilization needs at least 2 active tracks")
	}

	raw := AnalyzeGlobalMotion(s.session.Tracks, footage.FrameStart, footage.FrameEnd,
		s.opts.Anchor, footage.Width, footage.Height)

	frames := make([]int, 0, len(raw))
	for f := range raw {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	smoothed := SmoothTransforms(raw, frames,
		s.opts.SmoothTranslation, s.opts.SmoothRotation, s.opts.SmoothScale)

	s.logger.Debug("stabilization analyzed",
		"frames", len(frames), "anchor", s.opts.Anchor)

	return &StabilizationData{
		Raw:        raw,
		Smoothed:   smoothed,
		FrameStart: footage.FrameStart,
		FrameEnd:   footage.FrameEnd,
		Width:      footage.Width,
		Height:     footage.Height,
	}, nil
}

// Correction returns the per-frame correction transform: the inverse of
// the raw-minus-smoothed delta, i.e. the transform that removes the
// camera's unwanted motion while keeping the smoothed path. With
// Options.Invert set, the delta itself is returned.
func (s *Stabilizer) Correction(data *StabilizationData, frame int) Transform2D {
	raw, ok := data.Raw[frame]
	if !ok {
		return Identity()
	}
	smoothed := data.Smoothed[frame]
	delta := raw.Delta(smoothed)
	if s.opts.Invert {
		return delta
	}
	return delta.Inverse()
}
