// Package compress re-encodes images to fit a byte budget, a pixel
// budget and a format preference at the highest quality it can find.
//
// A call decodes the input, optionally pre-downscales very large sources,
// negotiates an output format, then runs up to three attempts. Lossy
// attempts binary-search the quality factor and shrink the canvas by 10%
// when even the minimum quality misses the budget; an oversized lossless
// result switches to a lossy format instead.
package compress

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/AnyUserName/imgfit/internal/canvas"
	"github.com/AnyUserName/imgfit/internal/decode"
	"github.com/AnyUserName/imgfit/internal/encoder"
	"github.com/AnyUserName/imgfit/internal/geometry"
)

// maxAttempts bounds the top-level draw/encode attempts per call.
const maxAttempts = 3

// Codec encodes images and probes which formats work.
// *encoder.Registry implements it.
type Codec interface {
	Prober
	Encode(ctx context.Context, img image.Image, f encoder.Format, opts encoder.Options) (encoder.Blob, error)
}

// Decoder turns input bytes into a bitmap. decode.Decoder implements it.
type Decoder interface {
	Decode(data []byte, keepEXIF bool) (*decode.Bitmap, error)
}

// Outcome is a successful compression.
type Outcome struct {
	Data     []byte
	MIMEType string
	Format   encoder.Format
	Filename string

	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int

	// Quality is the accepted quality factor; 0 for lossless output and
	// for unchanged input, whose encoder settings are unknown.
	Quality  float64
	Attempts int
	// Unchanged is set when the input bytes were returned as-is because
	// re-encoding could not make them smaller.
	Unchanged bool
}

// Size returns the output length in bytes.
func (o *Outcome) Size() int { return len(o.Data) }

// Compressor runs compression calls. It is safe for concurrent use; the
// only state shared between calls is the format support cache.
type Compressor struct {
	codec   Codec
	decoder Decoder
	cache   *SupportCache
	logger  *slog.Logger
}

// Option customizes a Compressor.
type Option func(*Compressor)

// WithDecoder replaces the bitmap decoder.
func WithDecoder(d Decoder) Option {
	return func(c *Compressor) { c.decoder = d }
}

// WithSupportCache shares a format support cache between compressors.
func WithSupportCache(cache *SupportCache) Option {
	return func(c *Compressor) { c.cache = cache }
}

// WithLogger sets the debug logger used when Options.Debug is on.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compressor) { c.logger = l }
}

// New creates a Compressor around codec.
func New(codec Codec, opts ...Option) *Compressor {
	c := &Compressor{
		codec:   codec,
		decoder: decode.Decoder{},
		cache:   NewSupportCache(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var discard = slog.New(slog.DiscardHandler)

// attemptState is the working set of one compression call.
type attemptState struct {
	n        int
	width    int
	height   int
	decision FormatDecision
	lastSize int
}

// Compress re-encodes input under opts. name is the source filename used
// to derive the output name; it may be empty.
func (c *Compressor) Compress(ctx context.Context, input []byte, name string, opts Options) (*Outcome, error) {
	opts = opts.Resolve()
	if err := opts.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	preferred, _ := encoder.ParseFormat(string(opts.PreferredFormat))

	log := discard
	if opts.Debug {
		log = c.logger
	}

	bm, err := c.decoder.Decode(input, opts.PreserveExif)
	if err != nil {
		return nil, &Error{Kind: ErrDecode, Op: "decode", Err: err}
	}

	budget := opts.MaxBytes()
	src := bm.Image

	w, h, downscaled := geometry.Downscale(bm.Width(), bm.Height(), opts.MaxWidth, opts.MaxHeight, opts.DownscaleDivisor)
	if downscaled {
		log.Debug("compress.downscale",
			"from", fmt.Sprintf("%dx%d", bm.Width(), bm.Height()),
			"to", fmt.Sprintf("%dx%d", w, h),
			"divisor", opts.DownscaleDivisor,
		)
		src = imaging.Resize(src, w, h, imaging.Box)
	}

	st := &attemptState{decision: Negotiate(ctx, preferred, c.codec, c.cache)}
	st.width, st.height = geometry.CanvasSize(w, h, opts.MaxWidth, opts.MaxHeight)
	tried := map[encoder.Format]bool{st.decision.Format: true}

	log.Debug("compress.format",
		"preferred", preferred,
		"chosen", st.decision.Format,
		"budget_bytes", budget,
		"canvas", fmt.Sprintf("%dx%d", st.width, st.height),
	)

	encOpts := encoder.Options{Progressive: opts.Progressive, Metadata: bm.EXIF}

	for n := 1; n <= maxAttempts; n++ {
		st.n = n
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		format := st.decision.Format

		res, fits, err := c.runAttempt(ctx, src, st, encOpts, opts, budget)
		if err != nil {
			if !format.Lossy() || n == maxAttempts {
				return nil, st.fail(ErrEncode, "encode", err, budget)
			}
			next, ok := lossyFallback(ctx, tried, c.codec, c.cache)
			if !ok {
				return nil, st.fail(ErrEncode, "encode", err, budget)
			}
			log.Debug("compress.fallback", "from", format, "to", next.Format, "reason", err.Error())
			tried[next.Format] = true
			st.decision = next
			continue
		}

		log.Debug("compress.attempt",
			"attempt", st.n,
			"format", format,
			"canvas", fmt.Sprintf("%dx%d", st.width, st.height),
			"encodes", res.tried,
			"size", st.lastSize,
			"fits", fits,
		)

		if fits {
			out := c.accept(input, name, bm, res, st, opts, downscaled)
			log.Debug("compress.accepted",
				"format", out.Format,
				"size", out.Size(),
				"quality", out.Quality,
				"dimensions", fmt.Sprintf("%dx%d", out.Width, out.Height),
				"attempts", out.Attempts,
				"unchanged", out.Unchanged,
			)
			return out, nil
		}

		if !format.Lossy() {
			if n == maxAttempts {
				return nil, st.fail(ErrBudgetUnreachable, "encode",
					fmt.Errorf("lossless %s output exceeds budget", format), budget)
			}
			next, ok := lossyFallback(ctx, tried, c.codec, c.cache)
			if !ok {
				return nil, st.fail(ErrBudgetUnreachable, "encode",
					fmt.Errorf("lossless %s output exceeds budget and no lossy format is available", format), budget)
			}
			log.Debug("compress.fallback", "from", format, "to", next.Format, "reason", "oversized")
			tried[next.Format] = true
			st.decision = next
			continue
		}

		if n == maxAttempts {
			break
		}
		nw, nh, ok := geometry.Shrink(st.width, st.height)
		if !ok {
			break
		}
		log.Debug("compress.shrink", "from", fmt.Sprintf("%dx%d", st.width, st.height), "to", fmt.Sprintf("%dx%d", nw, nh))
		st.width, st.height = nw, nh
	}

	return nil, st.fail(ErrBudgetUnreachable, "compress", nil, budget)
}

// runAttempt draws src on a fresh canvas and encodes it: one encode for
// lossless formats, a quality search for lossy ones. The canvas is
// released before returning.
func (c *Compressor) runAttempt(ctx context.Context, src image.Image, st *attemptState, encOpts encoder.Options, opts Options, budget int) (searchResult, bool, error) {
	st.lastSize = 0
	cv := canvas.New(st.width, st.height)
	defer cv.Release()

	sb := src.Bounds()
	cv.Draw(src, sb, geometry.DrawRect(sb.Dx(), sb.Dy(), st.width, st.height, opts.ResizeMode), opts.Smoothing)

	format := st.decision.Format
	if !format.Lossy() {
		blob, err := c.codec.Encode(ctx, cv.Image(), format, encOpts)
		if err != nil {
			return searchResult{}, false, err
		}
		st.lastSize = blob.Size()
		return searchResult{blob: blob, tried: 1, smallest: blob.Size()}, blob.Size() <= budget, nil
	}

	res, ok, err := searchQuality(func(q float64) (encoder.Blob, error) {
		o := encOpts
		o.Quality = q
		return c.codec.Encode(ctx, cv.Image(), format, o)
	}, opts.MinQuality, opts.Quality, budget)
	if err != nil {
		return searchResult{}, false, err
	}

	if ok {
		st.lastSize = res.blob.Size()
	} else {
		st.lastSize = res.smallest
	}
	return res, ok && res.blob.Size() <= budget, nil
}

func (c *Compressor) accept(input []byte, name string, bm *decode.Bitmap, res searchResult, st *attemptState, opts Options, downscaled bool) *Outcome {
	format := st.decision.Format
	if f, err := encoder.ParseFormat(res.blob.MIMEType); err == nil {
		format = f
	}

	out := &Outcome{
		Data:         res.blob.Data,
		MIMEType:     res.blob.MIMEType,
		Format:       format,
		Filename:     outputFilename(opts.OutputFilename, name, format.Extension()),
		Width:        st.width,
		Height:       st.height,
		SourceWidth:  bm.Width(),
		SourceHeight: bm.Height(),
		Attempts:     st.n,
	}
	if format.Lossy() {
		out.Quality = res.quality
	}

	regressed := len(input) <= res.blob.Size() &&
		len(input) <= opts.MaxBytes() &&
		!downscaled &&
		bm.Format == string(format) &&
		st.width == bm.Width() && st.height == bm.Height()
	if regressed && !opts.AllowSizeRegression {
		out.Data = input
		out.Quality = 0
		out.Unchanged = true
	}
	return out
}

func (st *attemptState) fail(kind error, op string, err error, budget int) *Error {
	return &Error{
		Kind:     kind,
		Op:       op,
		Err:      err,
		Format:   st.decision.Format,
		Width:    st.width,
		Height:   st.height,
		Size:     st.lastSize,
		Budget:   budget,
		Attempts: st.n,
	}
}
