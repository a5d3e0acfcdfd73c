package tracker

import (
	"image"
	"math"

	"github.com/solvekit/matchmove/track"
)

// SyntheticBackend is a deterministic frame provider, feature detector and
// optical flow in one: a grid of features rides a scripted global motion.
// It exists for reproducible pipelines and tests, as a first-class
// alternative to the OpenCV backend, not a special-cased branch.
type SyntheticBackend struct {
	// GridRows x GridCols features are laid out evenly across the frame.
	GridRows int
	GridCols int
	// Motion returns the cumulative normalized scene offset at a frame.
	// Nil means a static scene.
	Motion func(frame int) (dx, dy float64)
	// Lose, when set, reports whether a point fails to match on the given
	// frame. Nil means every match succeeds.
	Lose func(frame int, p track.Point) bool
}

// NewSyntheticBackend returns a backend with a 4x6 feature grid.
func NewSyntheticBackend() *SyntheticBackend {
	return &SyntheticBackend{
		GridRows: 4,
		GridCols: 6,
	}
}

func (s *SyntheticBackend) offset(frame int) (float64, float64) {
	if s.Motion == nil {
		return 0, 0
	}
	return s.Motion(frame)
}

// Frame returns a stable synthetic raster. The pixel content is a
// deterministic gradient; the scripted detector and flow never decode it.
func (s *SyntheticBackend) Frame(frame int) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*3 + y*5 + frame*7) % 251)
		}
	}
	return img, nil
}

// Detect returns the feature grid shifted by the scripted motion, with
// deterministic descending strengths.
func (s *SyntheticBackend) Detect(_ image.Image, frame, maxFeatures int) ([]Feature, error) {
	dx, dy := s.offset(frame)
	n := s.GridRows * s.GridCols
	features := make([]Feature, 0, n)
	for r := 0; r < s.GridRows; r++ {
		for c := 0; c < s.GridCols; c++ {
			i := r*s.GridCols + c
			features = append(features, Feature{
				Pos: track.Point{
					X: (float64(c)+0.5)/float64(s.GridCols) + dx,
					Y: (float64(r)+0.5)/float64(s.GridRows) + dy,
				},
				Strength: 1.0 - float64(i)/float64(n),
				Scale:    0.01,
			})
		}
	}
	if maxFeatures > 0 && len(features) > maxFeatures {
		features = features[:maxFeatures]
	}
	return features, nil
}

// Track moves every point by the scripted inter-frame delta. Match error
// is a small deterministic ripple so error statistics are reproducible.
func (s *SyntheticBackend) Track(_, _ image.Image, prevFrame, currFrame int, points []track.Point) ([]track.Point, []bool, []float64, error) {
	pdx, pdy := s.offset(prevFrame)
	cdx, cdy := s.offset(currFrame)
	dx := cdx - pdx
	dy := cdy - pdy

	out := make([]track.Point, len(points))
	status := make([]bool, len(points))
	errs := make([]float64, len(points))
	for i, p := range points {
		moved := track.Point{X: p.X + dx, Y: p.Y + dy}
		out[i] = moved
		errs[i] = 0.08 + 0.04*math.Abs(math.Sin(float64(currFrame)*0.7+p.X*13.0))
		status[i] = s.Lose == nil || !s.Lose(currFrame, moved)
	}
	return out, status, errs, nil
}
