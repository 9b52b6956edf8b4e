package encoder

import (
	"bytes"
	"image"

	"github.com/gen2brain/avif"
)

// avifSpeed trades encode time for size: 0 = slowest, 10 = fastest.
const avifSpeed = 8

// AVIFEncoder encodes images to AVIF. The codec is loaded at runtime
// (shared libaom or the embedded WASM build), so it can fail on hosts
// where neither works; the registry probe detects that.
type AVIFEncoder struct{}

func (e *AVIFEncoder) Format() Format { return AVIF }

func (e *AVIFEncoder) Encode(img image.Image, opts Options) ([]byte, error) {
	q := percent(opts.Quality)

	var buf bytes.Buffer
	buf.Grow(32 * 1024)

	err := avif.Encode(&buf, img, avif.Options{
		Quality:           q,
		QualityAlpha:      q,
		Speed:             avifSpeed,
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
