// Package tracker detects and tracks 2D image features across footage
// frames. Detection, optical flow and frame decoding are pluggable
// backends behind narrow interfaces; a deterministic synthetic backend is
// a first-class implementation alongside the OpenCV one.
package tracker

import (
	"image"
	"strings"

	"github.com/pkg/errors"

	"github.com/solvekit/matchmove/track"
)

// DetectorKind selects the feature detection algorithm of a backend.
type DetectorKind uint8

const (
	DetectorFAST DetectorKind = iota
	DetectorHarris
	DetectorSIFT
	DetectorORB
	DetectorBRISK
)

func (k DetectorKind) String() string {
	switch k {
	case DetectorFAST:
		return "fast"
	case DetectorHarris:
		return "harris"
	case DetectorSIFT:
		return "sift"
	case DetectorORB:
		return "orb"
	case DetectorBRISK:
		return "brisk"
	default:
		return "unknown"
	}
}

// ParseDetectorKind parses a detector name from configuration.
func ParseDetectorKind(name string) (DetectorKind, error) {
	switch strings.ToLower(name) {
	case "fast":
		return DetectorFAST, nil
	case "harris":
		return DetectorHarris, nil
	case "sift":
		return DetectorSIFT, nil
	case "orb":
		return DetectorORB, nil
	case "brisk":
		return DetectorBRISK, nil
	default:
		return DetectorFAST, errors.Errorf("unknown detector kind %q", name)
	}
}

// Feature is a detected image feature in normalized coordinates.
type Feature struct {
	Pos      track.Point
	Strength float64
	Scale    float64
	Angle    float64
}

// FrameProvider returns a stable, decodable raster for any frame in the
// session range.
type FrameProvider interface {
	Frame(frame int) (image.Image, error)
}

// FeatureDetector finds trackable features on a frame. The frame number
// accompanies the image so deterministic backends can reproduce scripted
// scenes without decoding pixels.
type FeatureDetector interface {
	Detect(img image.Image, frame, maxFeatures int) ([]Feature, error)
}

// OpticalFlow tracks a batch of points from one frame to the next.
// The returned slices are index-aligned with the input: new positions,
// per-point match success and per-point match error. A failed match is
// reported through the status slice, never as an error; the error return
// covers backend-level failure only.
type OpticalFlow interface {
	Track(prev, curr image.Image, prevFrame, currFrame int, points []track.Point) ([]track.Point, []bool, []float64, error)
}
