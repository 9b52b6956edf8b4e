package encoder

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// JPEGEncoder encodes images to baseline JPEG.
// Progressive output is not available from the Go encoder; the flag is ignored.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() Format { return JPEG }

func (e *JPEGEncoder) Encode(img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 * 1024)

	err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(percent(opts.Quality)))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
