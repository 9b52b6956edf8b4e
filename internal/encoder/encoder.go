package encoder

import (
	"fmt"
	"image"
	"strings"
)

// Format is an output image format name.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
	AVIF Format = "avif"
)

// ParseFormat normalizes a user-supplied format name ("jpg", "image/webp", ...).
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, ".")
	switch s {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	case "avif":
		return AVIF, nil
	}
	return "", fmt.Errorf("unknown image format %q", s)
}

// MIMEType returns the IANA media type, e.g. "image/webp".
func (f Format) MIMEType() string { return "image/" + string(f) }

// Extension returns the file extension without dot.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// Lossy reports whether the format has a meaningful quality axis.
func (f Format) Lossy() bool { return f != PNG }

// Options are per-call encoding parameters.
type Options struct {
	// Quality is normalized to [0,1]. Ignored by lossless encoders.
	Quality float64
	// Progressive requests progressive/interlaced output where supported.
	Progressive bool
	// Metadata is raw EXIF (TIFF-structured) to embed, if the format can carry it.
	Metadata []byte
}

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the format this encoder claims to produce.
	Format() Format

	// Encode converts the image to bytes.
	Encode(img image.Image, opts Options) ([]byte, error)
}

// Blob is an encoded image tagged with the MIME type of its actual content.
type Blob struct {
	Data     []byte
	MIMEType string
}

// Size returns the encoded length in bytes.
func (b Blob) Size() int { return len(b.Data) }

// percent maps a [0,1] quality onto the 1-100 scale Go encoders use.
func percent(q float64) int {
	p := int(q*100 + 0.5)
	if p < 1 {
		p = 1
	}
	if p > 100 {
		p = 100
	}
	return p
}
