package encoder

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
)

// Registry holds the encoders and answers which formats actually work.
type Registry struct {
	encoders map[Format]Encoder
}

// NewRegistry creates a registry. With no arguments every built-in
// encoder is registered; later entries replace earlier ones for the
// same format.
func NewRegistry(encoders ...Encoder) *Registry {
	if len(encoders) == 0 {
		encoders = []Encoder{
			&AVIFEncoder{},
			&WebPEncoder{},
			&JPEGEncoder{},
			&PNGEncoder{},
		}
	}

	r := &Registry{
		encoders: make(map[Format]Encoder, len(encoders)),
	}
	for _, enc := range encoders {
		r.encoders[enc.Format()] = enc
	}
	return r
}

// Get returns an encoder for the given format, or nil if none is registered.
func (r *Registry) Get(format Format) Encoder {
	return r.encoders[format]
}

// Encode encodes img in the requested format. The returned blob is tagged
// with the MIME type of what the encoder really produced, which can differ
// from the request when an encoder falls back silently.
func (r *Registry) Encode(ctx context.Context, img image.Image, format Format, opts Options) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, err
	}
	enc := r.encoders[format]
	if enc == nil {
		return Blob{}, fmt.Errorf("no encoder registered for %s", format)
	}

	data, err := enc.Encode(img, opts)
	if err != nil {
		return Blob{}, fmt.Errorf("encode %s: %w", format, err)
	}

	mime := format.MIMEType()
	if got := Sniff(data); got != "" {
		mime = got.MIMEType()
	}
	return Blob{Data: data, MIMEType: mime}, nil
}

// Supports probes whether format can really be produced: a 1x1 image is
// encoded and the output sniffed. Encoder errors, panics inside cgo/wasm
// loaders and silent fallbacks all count as unsupported.
func (r *Registry) Supports(ctx context.Context, format Format) (ok bool) {
	enc := r.encoders[format]
	if enc == nil || ctx.Err() != nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	probe := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	probe.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	data, err := enc.Encode(probe, Options{Quality: 0.5})
	if err != nil {
		return false
	}
	return Sniff(data) == format
}

// Formats returns the registered format names in priority order.
func (r *Registry) Formats() []Format {
	var result []Format
	for _, f := range []Format{AVIF, WebP, JPEG, PNG} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of registered encoders.
func (r *Registry) String() string {
	formats := r.Formats()
	if len(formats) == 0 {
		return "no encoders registered"
	}
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return fmt.Sprintf("encoders: %s", strings.Join(names, ", "))
}
