package encoder

import (
	"bytes"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// PNGEncoder encodes images to PNG. Quality is ignored.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() Format { return PNG }

func (e *PNGEncoder) Encode(img image.Image, _ Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(128 * 1024)

	err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
