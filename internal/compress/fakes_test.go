package compress

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/AnyUserName/imgfit/internal/decode"
	"github.com/AnyUserName/imgfit/internal/encoder"
)

// sizeModel returns the encoded size for a w×h canvas at quality q.
type sizeModel func(f encoder.Format, w, h int, q float64) int

// linearSize: lossy output grows with pixels and quality, PNG is 3 B/px.
func linearSize(f encoder.Format, w, h int, q float64) int {
	if !f.Lossy() {
		return w * h * 3
	}
	return 100 + int(float64(w*h)*q*0.5)
}

// fakeCodec produces zero-filled blobs whose length follows a size model.
type fakeCodec struct {
	mu        sync.Mutex
	supported map[encoder.Format]bool
	failing   map[encoder.Format]error
	size      sizeModel

	encodes int
	probes  map[encoder.Format]int
	seen    []encoder.Options
}

func newFakeCodec(supported ...encoder.Format) *fakeCodec {
	fc := &fakeCodec{
		supported: make(map[encoder.Format]bool),
		failing:   make(map[encoder.Format]error),
		probes:    make(map[encoder.Format]int),
		size:      linearSize,
	}
	for _, f := range supported {
		fc.supported[f] = true
	}
	return fc
}

func (fc *fakeCodec) Supports(_ context.Context, f encoder.Format) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.probes[f]++
	return fc.supported[f]
}

func (fc *fakeCodec) Encode(_ context.Context, img image.Image, f encoder.Format, opts encoder.Options) (encoder.Blob, error) {
	fc.mu.Lock()
	fc.encodes++
	fc.seen = append(fc.seen, opts)
	err := fc.failing[f]
	fc.mu.Unlock()

	if err != nil {
		return encoder.Blob{}, err
	}
	b := img.Bounds()
	return encoder.Blob{
		Data:     make([]byte, fc.size(f, b.Dx(), b.Dy(), opts.Quality)),
		MIMEType: f.MIMEType(),
	}, nil
}

func (fc *fakeCodec) encodeCount() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.encodes
}

// fakeDecoder returns a fixed bitmap and counts calls.
type fakeDecoder struct {
	mu    sync.Mutex
	bm    *decode.Bitmap
	err   error
	calls int
}

func (d *fakeDecoder) Decode(_ []byte, keepEXIF bool) (*decode.Bitmap, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	bm := *d.bm
	if !keepEXIF {
		bm.EXIF = nil
	}
	return &bm, nil
}

func bitmap(w, h int, format string) *decode.Bitmap {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return &decode.Bitmap{Image: img, Format: format}
}

// input stands in for encoded source bytes; fakes never read it.
func input(n int) []byte { return make([]byte, n) }

var errBoom = fmt.Errorf("boom")
