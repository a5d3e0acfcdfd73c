package distort

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// STMapOptions controls ST-Map generation.
type STMapOptions struct {
	Width  int
	Height int
	// Undistort encodes the inverse mapping (sample positions that remove
	// the profile's distortion); otherwise the forward mapping is encoded.
	Undistort bool
	// Overscan extends the sampled area beyond the frame by this fraction
	// on every side, so corrected corners stay inside the map.
	Overscan float64
	// Normalize clamps the encoded coordinates to [0,1].
	Normalize bool
	// Workers caps the number of goroutines; 0 means runtime.NumCPU().
	Workers int
}

// GenerateSTMap renders a W x H map whose (r,g) texels encode, per output
// pixel, the normalized source-sample coordinate that corrects (or applies)
// the profile's distortion. b is reserved at 0.5, a is 1.
//
// Every pixel is independent, so rows are striped across a worker pool.
// The inner loop performs no allocation.
func GenerateSTMap(profile CameraProfile, opts STMapOptions) (*image.NRGBA64, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Errorf("invalid ST-Map resolution %dx%d", opts.Width, opts.Height)
	}
	if err := profile.Validate(); err != nil {
		return nil, errors.Wrap(err, "can't generate ST-Map")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > opts.Height {
		workers = opts.Height
	}

	img := image.NewNRGBA64(image.Rect(0, 0, opts.Width, opts.Height))
	coeffs := profile.Distortion
	span := 1.0 + 2.0*opts.Overscan

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(startRow int) {
			defer wg.Done()
			for y := startRow; y < opts.Height; y += workers {
				v := (float64(y)+0.5)/float64(opts.Height)*span - opts.Overscan
				cy := v - 0.5
				for x := 0; x < opts.Width; x++ {
					u := (float64(x)+0.5)/float64(opts.Width)*span - opts.Overscan
					cx := u - 0.5

					var sx, sy float64
					if opts.Undistort {
						sx, sy = coeffs.Remove(cx, cy)
					} else {
						sx, sy = coeffs.Apply(cx, cy)
					}

					r := sx + 0.5
					g := sy + 0.5
					if opts.Normalize {
						r = clamp01(r)
						g = clamp01(g)
					}
					img.SetNRGBA64(x, y, color.NRGBA64{
						R: texel(r),
						G: texel(g),
						B: 0x7FFF,
						A: 0xFFFF,
					})
				}
			}
		}(w)
	}
	wg.Wait()
	return img, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// texel quantizes a [0,1] value to 16 bits. Out-of-range values
// (non-normalized maps) saturate.
func texel(v float64) uint16 {
	scaled := math.Round(v * 65535.0)
	if scaled < 0 {
		return 0
	}
	if scaled > 65535 {
		return 65535
	}
	return uint16(scaled)
}

// WritePNG encodes the map as 16-bit PNG.
func WritePNG(w io.Writer, img *image.NRGBA64) error {
	return errors.Wrap(png.Encode(w, img), "can't encode ST-Map PNG")
}

// WriteTIFF encodes the map as uncompressed TIFF.
func WriteTIFF(w io.Writer, img *image.NRGBA64) error {
	return errors.Wrap(tiff.Encode(w, img, nil), "can't encode ST-Map TIFF")
}
