package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnyUserName/imgfit/internal/encoder"
	"github.com/AnyUserName/imgfit/internal/geometry"
)

var allFormats = []encoder.Format{encoder.JPEG, encoder.PNG, encoder.WebP, encoder.AVIF}

// options returns DefaultOptions with edit applied.
func options(edit func(o *Options)) Options {
	o := DefaultOptions()
	edit(&o)
	return o
}

func newTestCompressor(fc *fakeCodec, dec *fakeDecoder) *Compressor {
	return New(fc, WithDecoder(dec))
}

func TestCompress_TrivialFit(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	dec := &fakeDecoder{bm: bitmap(2000, 1500, "jpeg")}
	c := newTestCompressor(fc, dec)

	out, err := c.Compress(context.Background(), input(4<<20), "holiday.jpg", options(func(o *Options) {
		o.MaxSizeMB = 1
		o.MaxWidth = 800
		o.ResizeMode = geometry.Contain
	}))
	require.NoError(t, err)

	assert.Equal(t, 800, out.Width)
	assert.Equal(t, 600, out.Height)
	assert.Equal(t, 2000, out.SourceWidth)
	assert.Equal(t, 1, out.Attempts, "should be accepted on the first pass")
	assert.Equal(t, encoder.WebP, out.Format)
	assert.Equal(t, "image/webp", out.MIMEType)
	assert.Equal(t, "holiday.webp", out.Filename)
	assert.LessOrEqual(t, out.Size(), 1<<20)
	assert.InDelta(t, 0.9, out.Quality, 2*qualityStep)
	assert.False(t, out.Unchanged)
}

func TestCompress_UnreachableBudget(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(2000, 1500, "jpeg")})

	_, err := c.Compress(context.Background(), input(1000), "", options(func(o *Options) {
		o.MaxSizeMB = 0.0001
		o.MinQuality = 0.5
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetUnreachable)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, maxAttempts, ce.Attempts)
	assert.Equal(t, encoder.WebP, ce.Format)
	assert.Equal(t, 648, ce.Width, "two 0.9x shrinks from 800")
	assert.Equal(t, 486, ce.Height)
	assert.Greater(t, ce.Size, ce.Budget)
	assert.Equal(t, 9, fc.encodeCount(), "three quality probes per attempt")
}

func TestCompress_PNGFallsBackToWebP(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(2000, 1500, "png")})

	out, err := c.Compress(context.Background(), input(1000), "shot.png", options(func(o *Options) { o.PreferredFormat = encoder.PNG }))
	require.NoError(t, err)

	assert.Equal(t, encoder.WebP, out.Format)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 800, out.Width, "lossless overshoot must not downscale")
	assert.LessOrEqual(t, out.Size(), DefaultOptions().MaxBytes())
	assert.InDelta(t, 0.3875, out.Quality, 1e-9)
	assert.Equal(t, "shot.webp", out.Filename)
}

func TestCompress_LosslessWithoutLossyAlternative(t *testing.T) {
	fc := newFakeCodec(encoder.PNG)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(1000, 1000, "png")})

	_, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) { o.PreferredFormat = encoder.PNG }))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetUnreachable)
	assert.Equal(t, 1, fc.encodeCount())
}

func TestCompress_LosslessFits(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(100, 100, "jpeg")})

	out, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) { o.PreferredFormat = encoder.PNG }))
	require.NoError(t, err)
	assert.Equal(t, encoder.PNG, out.Format)
	assert.Zero(t, out.Quality)
	assert.Equal(t, "image.png", out.Filename)
}

func TestCompress_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero size", options(func(o *Options) { o.MaxSizeMB = 0 })},
		{"negative size", options(func(o *Options) { o.MaxSizeMB = -1 })},
		{"zero width", options(func(o *Options) { o.MaxWidth = 0 })},
		{"zero quality", options(func(o *Options) { o.Quality = 0 })},
		{"zero divisor", options(func(o *Options) { o.DownscaleDivisor = 0 })},
		{"negative width", options(func(o *Options) { o.MaxWidth = -10 })},
		{"negative height", options(func(o *Options) { o.MaxHeight = -1 })},
		{"quality above one", options(func(o *Options) { o.Quality = 1.5 })},
		{"negative quality", options(func(o *Options) { o.Quality = -0.2 })},
		{"min quality one", options(func(o *Options) { o.MinQuality = 1 })},
		{"min above start", options(func(o *Options) { o.Quality = 0.3; o.MinQuality = 0.5 })},
		{"divisor one", options(func(o *Options) { o.DownscaleDivisor = 1 })},
		{"bad mode", options(func(o *Options) { o.ResizeMode = "stretch" })},
		{"bad format", options(func(o *Options) { o.PreferredFormat = "gif" })},
		{"bad smoothing", options(func(o *Options) { o.Smoothing = "ultra" })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := &fakeDecoder{bm: bitmap(10, 10, "png")}
			c := newTestCompressor(newFakeCodec(allFormats...), dec)

			_, err := c.Compress(context.Background(), input(10), "", tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Zero(t, dec.calls, "no decode on invalid configuration")
		})
	}
}

func TestCompress_DecodeFailure(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{err: errBoom})

	_, err := c.Compress(context.Background(), []byte("junk"), "", DefaultOptions())
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, fc.encodeCount())
}

func TestCompress_LossyEncodeErrorFallsBack(t *testing.T) {
	fc := newFakeCodec(encoder.WebP, encoder.JPEG)
	fc.failing[encoder.WebP] = errBoom
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(400, 300, "png")})

	out, err := c.Compress(context.Background(), input(10), "", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, encoder.JPEG, out.Format)
	assert.Equal(t, 2, out.Attempts)
}

func TestCompress_LossyEncodeErrorWithoutFallback(t *testing.T) {
	fc := newFakeCodec(encoder.WebP)
	fc.failing[encoder.WebP] = errBoom
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(400, 300, "png")})

	_, err := c.Compress(context.Background(), input(10), "", DefaultOptions())
	assert.ErrorIs(t, err, ErrEncode)
	assert.ErrorIs(t, err, errBoom)
}

func TestCompress_EncodeErrorOnLastAttempt(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	fc.failing[encoder.WebP] = errBoom
	fc.failing[encoder.AVIF] = errBoom
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(2000, 1500, "png")})

	// png oversized, then webp and avif both fail: the attempts run out
	// before jpeg is reached.
	_, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) { o.PreferredFormat = encoder.PNG }))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrBudgetUnreachable)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, encoder.AVIF, ce.Format, "diagnostics name the format that failed")
	assert.Equal(t, maxAttempts, ce.Attempts)
	assert.Zero(t, ce.Size, "no output from the failed attempt")
}

func TestCompress_ZeroMinQualityIsHonoured(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(400, 300, "jpeg")})

	_, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) {
		o.MaxSizeMB = 0.00001
		o.MinQuality = 0
	}))
	require.ErrorIs(t, err, ErrBudgetUnreachable)

	lowest := 1.0
	for _, o := range fc.seen {
		lowest = min(lowest, o.Quality)
	}
	assert.Less(t, lowest, 0.05, "search must go below the 0.1 default floor")
}

func TestCompress_LosslessEncodeErrorIsFatal(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	fc.failing[encoder.PNG] = errBoom
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(400, 300, "png")})

	_, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) { o.PreferredFormat = encoder.PNG }))
	assert.ErrorIs(t, err, ErrEncode)
	assert.Equal(t, 1, fc.encodeCount())
}

func TestCompress_ShrinksUntilFit(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	// Fits only once the canvas is at or below 700 px wide.
	fc.size = func(f encoder.Format, w, h int, q float64) int {
		if w > 700 {
			return 1 << 30
		}
		return 1000
	}
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(1600, 1200, "jpeg")})

	out, err := c.Compress(context.Background(), input(10), "", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 648, out.Width)
	assert.Equal(t, 486, out.Height)
}

func TestCompress_PreDownscale(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(5000, 100, "jpeg")})

	out, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) { o.MaxSizeMB = 1 }))
	require.NoError(t, err)
	assert.Equal(t, 800, out.Width)
	assert.Equal(t, 16, out.Height)
	assert.Equal(t, 5000, out.SourceWidth)
}

func TestCompress_CanvasRespectsBoundsInEveryMode(t *testing.T) {
	modes := []geometry.Mode{geometry.Contain, geometry.Cover, geometry.Fill, geometry.Inside, geometry.Outside}
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			c := newTestCompressor(newFakeCodec(allFormats...), &fakeDecoder{bm: bitmap(1200, 900, "jpeg")})
			out, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) {
				o.MaxSizeMB = 1
				o.MaxWidth = 500
				o.MaxHeight = 300
				o.ResizeMode = mode
			}))
			require.NoError(t, err)
			assert.LessOrEqual(t, out.Width, 500)
			assert.LessOrEqual(t, out.Height, 300)
		})
	}
}

func TestCompress_NoSizeRegression(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(200, 100, "webp")})
	src := input(500)

	out, err := c.Compress(context.Background(), src, "a.webp", DefaultOptions())
	require.NoError(t, err)
	assert.True(t, out.Unchanged)
	assert.Equal(t, len(src), out.Size())
	assert.Zero(t, out.Quality, "quality of the discarded re-encode must not be reported")

	out, err = c.Compress(context.Background(), src, "a.webp", options(func(o *Options) { o.AllowSizeRegression = true }))
	require.NoError(t, err)
	assert.False(t, out.Unchanged)
	assert.Greater(t, out.Size(), len(src))
}

func TestCompress_PassesEncoderFlags(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	bm := bitmap(50, 50, "jpeg")
	bm.EXIF = []byte("Exif-ish")
	c := newTestCompressor(fc, &fakeDecoder{bm: bm})

	_, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) {
		o.PreserveExif = true
		o.Progressive = true
	}))
	require.NoError(t, err)
	require.NotEmpty(t, fc.seen)
	for _, o := range fc.seen {
		assert.True(t, o.Progressive)
		assert.Equal(t, []byte("Exif-ish"), o.Metadata)
	}
}

func TestCompress_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	fc := newFakeCodec(allFormats...)
	c := New(fc, WithDecoder(&fakeDecoder{bm: bitmap(300, 200, "jpeg")}), WithLogger(logger))

	quiet, err := c.Compress(context.Background(), input(10), "", DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, buf.Len(), "debug off must not log")

	loud, err := c.Compress(context.Background(), input(10), "", options(func(o *Options) { o.Debug = true }))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "compress.format")
	assert.Contains(t, buf.String(), "compress.accepted")

	assert.Equal(t, quiet.Size(), loud.Size())
	assert.Equal(t, quiet.Quality, loud.Quality)
}

func TestCompress_ConcurrentCallsShareCache(t *testing.T) {
	fc := newFakeCodec(allFormats...)
	c := newTestCompressor(fc, &fakeDecoder{bm: bitmap(640, 480, "jpeg")})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Compress(context.Background(), input(10), fmt.Sprintf("%d.jpg", i), DefaultOptions())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
	}
	ok, hit := c.cache.Lookup(encoder.WebP)
	assert.True(t, hit)
	assert.True(t, ok)
}

func TestCompress_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestCompressor(newFakeCodec(allFormats...), &fakeDecoder{bm: bitmap(10, 10, "png")})

	_, err := c.Compress(ctx, input(10), "", DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

// Real codecs: JPEG in, JPEG out, then the output fed back in.
func TestCompress_RecompressIsIdempotent(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1200, 900))
	for y := 0; y < 900; y++ {
		for x := 0; x < 1200; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x / 5), G: uint8(y / 4), B: uint8((x + y) / 9), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}))

	reg := encoder.NewRegistry(&encoder.JPEGEncoder{}, &encoder.PNGEncoder{})
	c := New(reg)
	opts := options(func(o *Options) {
		o.MaxSizeMB = 0.2
		o.PreferredFormat = encoder.JPEG
	})

	first, err := c.Compress(context.Background(), buf.Bytes(), "photo.jpg", opts)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", first.MIMEType)
	assert.Equal(t, 800, first.Width)
	assert.Equal(t, 600, first.Height)
	assert.LessOrEqual(t, first.Size(), opts.Resolve().MaxBytes())

	second, err := c.Compress(context.Background(), first.Data, first.Filename, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, second.Size(), first.Size())
	assert.Equal(t, "photo.jpg", second.Filename)
}
