package track

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PointStatus is the per-frame tracking state of a feature.
type PointStatus uint8

const (
	// StatusOK means the feature was matched on this frame.
	StatusOK PointStatus = iota
	// StatusMissing means the match failed; the point keeps an estimated
	// position but is excluded from quality metrics and solve inputs.
	StatusMissing
)

func (s PointStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMissing:
		return "missing"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// TrackPoint is a single observation of a feature on one frame.
// A point is never mutated after creation except for the status flip
// when the feature is lost.
type TrackPoint struct {
	Frame  int         `json:"frame"`
	Pos    Point       `json:"pos"`
	Status PointStatus `json:"status"`
	// Error is the backend-reported match error, >= 0.
	Error  float64 `json:"error"`
	Weight float64 `json:"weight"`
}

// Track is a single tracked image feature's position history across frames.
type Track struct {
	id          uuid.UUID
	name        string
	pattern     Region
	search      Region
	enabled     bool
	correlation float64
	color       Color

	// One point per frame; frames holds the sorted key set so temporal
	// iteration is strictly increasing.
	points map[int]TrackPoint
	frames []int
}

// NewTrack creates a track seeded with a single point.
func NewTrack(name string, pattern, search Region, seed TrackPoint) *Track {
	t := &Track{
		id:          uuid.New(),
		name:        name,
		pattern:     pattern,
		search:      search,
		enabled:     true,
		correlation: 1.0,
		points:      make(map[int]TrackPoint),
		frames:      make([]int, 0, 64),
	}
	t.points[seed.Frame] = seed
	t.frames = append(t.frames, seed.Frame)
	return t
}

// ID returns the track's identifier.
func (t *Track) ID() uuid.UUID {
	return t.id
}

// SetID sets the track's identifier.
func (t *Track) SetID(newID uuid.UUID) {
	t.id = newID
}

// Name returns the track's display name.
func (t *Track) Name() string {
	return t.name
}

// Pattern returns the track's pattern region.
func (t *Track) Pattern() Region {
	return t.pattern
}

// Search returns the track's search region.
func (t *Track) Search() Region {
	return t.search
}

// Enabled reports whether the track participates in quality scoring,
// solving and stabilization.
func (t *Track) Enabled() bool {
	return t.enabled
}

// Disable soft-deletes the track. The points stay in place so that
// quality reporting remains auditable.
func (t *Track) Disable() {
	t.enabled = false
}

// Enable re-activates a previously disabled track.
func (t *Track) Enable() {
	t.enabled = true
}

// Correlation returns the track's running correlation score.
func (t *Track) Correlation() float64 {
	return t.correlation
}

// SetCorrelation sets the track's correlation score.
func (t *Track) SetCorrelation(c float64) {
	t.correlation = c
}

// Color returns the track's visualization color.
func (t *Track) Color() Color {
	return t.color
}

// SetColor sets the track's visualization color.
func (t *Track) SetColor(c Color) {
	t.color = c
}

// Append adds a point after the current last frame (forward tracking).
func (t *Track) Append(p TrackPoint) error {
	if len(t.frames) > 0 && p.Frame <= t.frames[len(t.frames)-1] {
		return errors.Errorf("append frame %d is not after last frame %d", p.Frame, t.frames[len(t.frames)-1])
	}
	t.points[p.Frame] = p
	t.frames = append(t.frames, p.Frame)
	return nil
}

// Prepend adds a point before the current first frame (backward tracking).
func (t *Track) Prepend(p TrackPoint) error {
	if len(t.frames) > 0 && p.Frame >= t.frames[0] {
		return errors.Errorf("prepend frame %d is not before first frame %d", p.Frame, t.frames[0])
	}
	t.points[p.Frame] = p
	t.frames = append([]int{p.Frame}, t.frames...)
	return nil
}

// PointAt returns the point on the given frame, if any.
func (t *Track) PointAt(frame int) (TrackPoint, bool) {
	p, ok := t.points[frame]
	return p, ok
}

// MarkMissing flips the status of the point on the given frame to missing.
// This is the only allowed mutation of an existing point.
func (t *Track) MarkMissing(frame int) {
	if p, ok := t.points[frame]; ok {
		p.Status = StatusMissing
		t.points[frame] = p
	}
}

// Frames returns the track's frame numbers in increasing order.
// The returned slice is a copy.
func (t *Track) Frames() []int {
	out := make([]int, len(t.frames))
	copy(out, t.frames)
	return out
}

// FirstFrame returns the earliest frame with a point.
func (t *Track) FirstFrame() int {
	if len(t.frames) == 0 {
		return 0
	}
	return t.frames[0]
}

// LastFrame returns the latest frame with a point.
func (t *Track) LastFrame() int {
	if len(t.frames) == 0 {
		return 0
	}
	return t.frames[len(t.frames)-1]
}

// Len returns the number of points on the track.
func (t *Track) Len() int {
	return len(t.frames)
}

// OKCount returns the number of points with StatusOK.
func (t *Track) OKCount() int {
	n := 0
	for _, f := range t.frames {
		if t.points[f].Status == StatusOK {
			n++
		}
	}
	return n
}

// HasOKAt reports whether the track has an OK point on the given frame.
func (t *Track) HasOKAt(frame int) bool {
	p, ok := t.points[frame]
	return ok && p.Status == StatusOK
}

// IsLost reports whether the track's latest point is missing. A lost
// track is never resumed by the tracker.
func (t *Track) IsLost() bool {
	if len(t.frames) == 0 {
		return false
	}
	return t.points[t.frames[len(t.frames)-1]].Status == StatusMissing
}

// trackJSON is the serialized form of Track. Points are stored as a
// sorted slice so the file is stable and diffable.
type trackJSON struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Pattern     Region       `json:"pattern"`
	Search      Region       `json:"search"`
	Enabled     bool         `json:"enabled"`
	Correlation float64      `json:"correlation"`
	Color       Color        `json:"color"`
	Points      []TrackPoint `json:"points"`
}

func (t *Track) toJSON() trackJSON {
	pts := make([]TrackPoint, 0, len(t.frames))
	for _, f := range t.frames {
		pts = append(pts, t.points[f])
	}
	return trackJSON{
		ID:          t.id,
		Name:        t.name,
		Pattern:     t.pattern,
		Search:      t.search,
		Enabled:     t.enabled,
		Correlation: t.correlation,
		Color:       t.color,
		Points:      pts,
	}
}

func trackFromJSON(j trackJSON) (*Track, error) {
	t := &Track{
		id:          j.ID,
		name:        j.Name,
		pattern:     j.Pattern,
		search:      j.Search,
		enabled:     j.Enabled,
		correlation: j.Correlation,
		color:       j.Color,
		points:      make(map[int]TrackPoint, len(j.Points)),
		frames:      make([]int, 0, len(j.Points)),
	}
	for _, p := range j.Points {
		if _, ok := t.points[p.Frame]; ok {
			return nil, errors.Errorf("track %q has duplicate point on frame %d", j.Name, p.Frame)
		}
		t.points[p.Frame] = p
		t.frames = append(t.frames, p.Frame)
	}
	sort.Ints(t.frames)
	return t, nil
}
