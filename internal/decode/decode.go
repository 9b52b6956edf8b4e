// Package decode turns encoded image bytes into a drawable bitmap.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmpty is returned for zero-length input.
var ErrEmpty = errors.New("empty input")

// Bitmap is a decoded source image.
type Bitmap struct {
	Image image.Image
	// Format is the decoder name ("jpeg", "png", "webp", ...).
	Format string
	// EXIF holds the raw EXIF block when requested and present.
	EXIF []byte
}

// Width returns the pixel width.
func (b *Bitmap) Width() int { return b.Image.Bounds().Dx() }

// Height returns the pixel height.
func (b *Bitmap) Height() int { return b.Image.Bounds().Dy() }

// Decoder decodes bytes with EXIF orientation applied.
type Decoder struct{}

// Decode decodes data. With keepEXIF the raw EXIF block is extracted
// too; missing or unreadable EXIF is not an error.
func (Decoder) Decode(data []byte, keepEXIF bool) (*Bitmap, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("decode %s: empty bounds %v", format, b)
	}

	bm := &Bitmap{Image: img, Format: format}
	if keepEXIF {
		bm.EXIF = rawEXIF(data)
	}
	return bm, nil
}

func rawEXIF(data []byte) []byte {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return nil
	}
	return x.Raw
}
