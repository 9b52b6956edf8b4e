package encoder

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
)

// WebPEncoder encodes images to lossy WebP via libwebp (cgo).
type WebPEncoder struct{}

func (e *WebPEncoder) Format() Format { return WebP }

func (e *WebPEncoder) Encode(img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 * 1024)

	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(percent(opts.Quality))}); err != nil {
		return nil, err
	}
	if len(opts.Metadata) == 0 {
		return buf.Bytes(), nil
	}

	data, err := webp.SetMetadata(buf.Bytes(), opts.Metadata, "EXIF")
	if err != nil {
		return nil, fmt.Errorf("webp exif: %w", err)
	}
	return data, nil
}
