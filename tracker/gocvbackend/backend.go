// Package gocvbackend implements the feature-detection and optical-flow
// backend contracts on top of OpenCV via gocv. It lives in its own package
// so the synthetic backend keeps the rest of the module OpenCV-free.
package gocvbackend

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/solvekit/matchmove/track"
	"github.com/solvekit/matchmove/tracker"
)

// Backend runs OpenCV feature detection and pyramidal Lucas-Kanade flow.
type Backend struct {
	kind tracker.DetectorKind
	// Shi-Tomasi/Harris corner parameters.
	qualityLevel float64
	minDistance  float64
}

// New creates a backend for the given detector kind.
func New(kind tracker.DetectorKind) *Backend {
	return &Backend{
		kind:         kind,
		qualityLevel: 0.01,
		minDistance:  10.0,
	}
}

// Detect finds features on the frame and returns them in normalized
// coordinates with the detector response as strength.
func (b *Backend) Detect(img image.Image, _ int, maxFeatures int) ([]tracker.Feature, error) {
	mat := grayMat(img)
	defer mat.Close()

	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	if b.kind == tracker.DetectorHarris {
		corners := gocv.NewMat()
		defer corners.Close()
		gocv.GoodFeaturesToTrack(mat, &corners, maxFeatures, b.qualityLevel, b.minDistance)
		n := corners.Rows()
		if n == 0 {
			return nil, nil
		}
		features := make([]tracker.Feature, 0, n)
		for i := 0; i < n; i++ {
			// Corners come back strongest-first; encode rank as strength.
			features = append(features, tracker.Feature{
				Pos: track.Point{
					X: float64(corners.GetFloatAt(i, 0)) / w,
					Y: float64(corners.GetFloatAt(i, 1)) / h,
				},
				Strength: 1.0 - float64(i)/float64(n),
			})
		}
		return features, nil
	}

	keypoints, err := b.detectKeypoints(mat)
	if err != nil {
		return nil, err
	}
	features := make([]tracker.Feature, 0, len(keypoints))
	for _, kp := range keypoints {
		features = append(features, tracker.Feature{
			Pos:      track.Point{X: kp.X / w, Y: kp.Y / h},
			Strength: kp.Response,
			Scale:    kp.Size / w,
			Angle:    kp.Angle,
		})
	}
	return features, nil
}

func (b *Backend) detectKeypoints(mat gocv.Mat) ([]gocv.KeyPoint, error) {
	switch b.kind {
	case tracker.DetectorFAST:
		d := gocv.NewFastFeatureDetector()
		defer d.Close()
		return d.Detect(mat), nil
	case tracker.DetectorSIFT:
		d := gocv.NewSIFT()
		defer d.Close()
		return d.Detect(mat), nil
	case tracker.DetectorORB:
		d := gocv.NewORB()
		defer d.Close()
		return d.Detect(mat), nil
	case tracker.DetectorBRISK:
		d := gocv.NewBRISK()
		defer d.Close()
		return d.Detect(mat), nil
	default:
		return nil, errors.Errorf("detector kind %s not supported by the OpenCV backend", b.kind)
	}
}

// Track runs pyramidal Lucas-Kanade on the point batch. Per-point failure
// is reported through the status slice, never as an error.
func (b *Backend) Track(prev, curr image.Image, _, _ int, points []track.Point) ([]track.Point, []bool, []float64, error) {
	if len(points) == 0 {
		return nil, nil, nil, nil
	}
	prevMat := grayMat(prev)
	defer prevMat.Close()
	currMat := grayMat(curr)
	defer currMat.Close()

	w := float64(curr.Bounds().Dx())
	h := float64(curr.Bounds().Dy())

	prevPts := gocv.NewMatWithSize(len(points), 2, gocv.MatTypeCV32F)
	defer prevPts.Close()
	for i, p := range points {
		prevPts.SetFloatAt(i, 0, float32(p.X*w))
		prevPts.SetFloatAt(i, 1, float32(p.Y*h))
	}

	nextPts := gocv.NewMat()
	status := gocv.NewMat()
	errMat := gocv.NewMat()
	defer nextPts.Close()
	defer status.Close()
	defer errMat.Close()

	gocv.CalcOpticalFlowPyrLK(prevMat, currMat, prevPts, nextPts, &status, &errMat)

	if nextPts.Rows() != len(points) {
		return nil, nil, nil, errors.Errorf("flow returned %d points for %d inputs", nextPts.Rows(), len(points))
	}

	out := make([]track.Point, len(points))
	ok := make([]bool, len(points))
	errs := make([]float64, len(points))
	for i := range points {
		out[i] = track.Point{
			X: float64(nextPts.GetFloatAt(i, 0)) / w,
			Y: float64(nextPts.GetFloatAt(i, 1)) / h,
		}
		ok[i] = status.GetUCharAt(i, 0) == 1
		errs[i] = float64(errMat.GetFloatAt(i, 0))
	}
	return out, ok, errs, nil
}

// grayMat converts a decoded image into a single-channel OpenCV Mat.
func grayMat(img image.Image) gocv.Mat {
	bounds := img.Bounds()
	mat := gocv.NewMatWithSize(bounds.Dy(), bounds.Dx(), gocv.MatTypeCV8UC1)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			gray := uint8(0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8))
			mat.SetUCharAt(y-bounds.Min.Y, x-bounds.Min.X, gray)
		}
	}
	return mat
}
