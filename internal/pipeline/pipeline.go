package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/AnyUserName/imgfit/internal/compress"
	"github.com/AnyUserName/imgfit/internal/encoder"
	"github.com/AnyUserName/imgfit/internal/report"
)

// Config holds all parameters for a batch run.
type Config struct {
	Input       string // file or directory
	OutputDir   string
	Profile     string
	Options     compress.Options
	Workers     int
	Verbose     bool
	ContentHash bool // name outputs <name>.<hash8>.<ext>

	// Log receives progress lines; defaults to stderr.
	Log io.Writer
}

// Pipeline compresses every image under an input path.
type Pipeline struct {
	cfg        Config
	registry   *encoder.Registry
	cache      *compress.SupportCache
	compressor *compress.Compressor
}

// New creates a configured pipeline. Compression debug output goes to
// a text slog handler on the progress writer when Verbose is set.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	cfg.Options = cfg.Options.Resolve()
	cfg.Options.Debug = cfg.Options.Debug || cfg.Verbose

	registry := encoder.NewRegistry()
	cache := compress.NewSupportCache()
	logger := slog.New(slog.NewTextHandler(cfg.Log, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		cache:    cache,
		compressor: compress.New(registry,
			compress.WithSupportCache(cache),
			compress.WithLogger(logger),
		),
	}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.cfg.Verbose {
		fmt.Fprintf(p.cfg.Log, "[imgfit] "+format+"\n", args...)
	}
}

// Run executes the batch and returns the report.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	if err := p.cfg.Options.Validate(); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}

	// Step 1: Scan for images.
	sources, err := ScanImages(p.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", p.cfg.Input)
	}
	p.logf("found %d images", len(sources))

	// Step 2: Probe encoders once so workers hit a warm cache.
	encoders := p.supportedFormats(ctx)
	p.logf("%s; usable: %v", p.registry, encoders)

	// Step 3: Compress in parallel.
	results := make([]processResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			p.logf("processing: %s", s.Key)
			results[idx] = processImage(ctx, s, p.cfg, p.compressor)
			if r := results[idx]; r.err == nil {
				p.logf("done: %s -> %s (%d B, %dx%d)", s.Key, r.entry.Output.Path,
					r.entry.Output.Size, r.entry.Output.Width, r.entry.Output.Height)
			}
		}(i, src)
	}
	wg.Wait()

	// Step 4: Collect results into the report.
	o := p.cfg.Options
	rep := report.New(p.cfg.Profile, report.Budget{
		MaxBytes:   o.MaxBytes(),
		MaxWidth:   o.MaxWidth,
		MaxHeight:  o.MaxHeight,
		ResizeMode: string(o.ResizeMode),
		Preferred:  string(o.PreferredFormat),
	})
	rep.BuildInfo = &report.BuildInfo{Workers: p.cfg.Workers, Encoders: encoders}

	for _, r := range results {
		if _, dup := rep.Entries[r.key]; dup && r.err == nil {
			r.err = fmt.Errorf("%s: duplicate entry key", r.key)
		}
		if r.err != nil {
			if rep.Failures == nil {
				rep.Failures = make(map[string]string)
			}
			rep.Failures[r.key] = r.err.Error()
			fmt.Fprintf(p.cfg.Log, "[imgfit] error: %v\n", r.err)
			continue
		}
		rep.Entries[r.key] = r.entry
	}

	// Partial failures are reported, not fatal.
	if n := len(rep.Failures); n > 0 {
		if n == len(sources) {
			return nil, fmt.Errorf("all %d images failed to compress", n)
		}
		fmt.Fprintf(p.cfg.Log, "[imgfit] warning: %d of %d images failed\n", n, len(sources))
	}

	rep.ComputeStats()
	return rep, nil
}

func (p *Pipeline) supportedFormats(ctx context.Context) []string {
	formats := p.registry.Formats()
	ok := make([]bool, len(formats))

	var wg sync.WaitGroup
	for i, f := range formats {
		wg.Add(1)
		go func(idx int, f encoder.Format) {
			defer wg.Done()
			ok[idx] = p.registry.Supports(ctx, f)
			if ctx.Err() == nil {
				p.cache.Store(f, ok[idx])
			}
		}(i, f)
	}
	wg.Wait()

	var out []string
	for i, f := range formats {
		if ok[i] {
			out = append(out, string(f))
		}
	}
	return out
}
