// Package prep readies screenshots for recognition: grayscale, upscale
// and contrast, re-encoded as PNG.
package prep

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

var ErrEmptyImage = errors.New("empty image")

type Options struct {
	// Scale multiplies both dimensions; values <= 1 leave size unchanged.
	Scale float64
	// Contrast in percent, -100..100.
	Contrast float64
}

var Default = Options{Scale: 2, Contrast: 50}

// Apply runs the pipeline on a decoded image.
func Apply(img image.Image, o Options) *image.NRGBA {
	out := imaging.Grayscale(img)
	if o.Scale > 1 {
		b := out.Bounds()
		w := int(float64(b.Dx()) * o.Scale)
		out = imaging.Resize(out, w, 0, imaging.Lanczos)
	}
	if o.Contrast != 0 {
		out = imaging.AdjustContrast(out, o.Contrast)
	}
	return out
}

// Prepare decodes raw image bytes, applies o and returns PNG bytes.
func Prepare(data []byte, o Options) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Apply(img, o), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
