package tracker

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// FileSequence serves frames from numbered image files on disk, e.g.
// NewFileSequence("shots/sh010/frame_%04d.png"). Frames are converted to
// grayscale once on load, which is what the flow backends consume.
type FileSequence struct {
	pattern string
}

// NewFileSequence creates a provider from a printf-style path pattern
// with one integer verb for the frame number.
func NewFileSequence(pattern string) *FileSequence {
	return &FileSequence{pattern: pattern}
}

// Frame loads and decodes the image file for the given frame number.
func (f *FileSequence) Frame(frame int) (image.Image, error) {
	path := fmt.Sprintf(f.pattern, frame)
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open frame file %s", path)
	}
	return imaging.Grayscale(img), nil
}
