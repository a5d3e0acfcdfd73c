package track

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Footage describes the clip being tracked.
type Footage struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameStart int     `json:"frame_start"`
	FrameEnd   int     `json:"frame_end"`
}

// Duration returns the number of frames in the footage, inclusive.
func (f Footage) Duration() int {
	return f.FrameEnd - f.FrameStart + 1
}

// Contains reports whether the frame lies within the footage range.
func (f Footage) Contains(frame int) bool {
	return frame >= f.FrameStart && frame <= f.FrameEnd
}

// TrackingSession is the shared data model for one footage import.
// It is owned exclusively by the orchestrating caller and passed by
// reference into each pipeline component; there is no concurrent mutation.
type TrackingSession struct {
	Footage       Footage
	CameraProfile string
	Tracks        []*Track
}

// NewSession creates a session for the given footage.
func NewSession(footage Footage) (*TrackingSession, error) {
	if footage.FrameStart > footage.FrameEnd {
		return nil, errors.Errorf("frame_start %d after frame_end %d", footage.FrameStart, footage.FrameEnd)
	}
	if footage.Width <= 0 || footage.Height <= 0 {
		return nil, errors.Errorf("invalid footage dimensions %dx%d", footage.Width, footage.Height)
	}
	return &TrackingSession{
		Footage: footage,
		Tracks:  make([]*Track, 0, 64),
	}, nil
}

// AddTrack appends a track, assigning its color from the running index.
func (s *TrackingSession) AddTrack(t *Track) {
	t.SetColor(ColorForIndex(len(s.Tracks)))
	s.Tracks = append(s.Tracks, t)
}

// ActiveTracks returns the enabled tracks.
func (s *TrackingSession) ActiveTracks() []*Track {
	out := make([]*Track, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		if t.Enabled() {
			out = append(out, t)
		}
	}
	return out
}

// ActiveCountAt returns the number of enabled tracks with an OK point
// on the given frame.
func (s *TrackingSession) ActiveCountAt(frame int) int {
	n := 0
	for _, t := range s.Tracks {
		if t.Enabled() && t.HasOKAt(frame) {
			n++
		}
	}
	return n
}

// TrackByID finds a track by identifier.
func (s *TrackingSession) TrackByID(id uuid.UUID) (*Track, bool) {
	for _, t := range s.Tracks {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}
