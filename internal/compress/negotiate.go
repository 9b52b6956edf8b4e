package compress

import (
	"context"
	"sync"

	"github.com/AnyUserName/imgfit/internal/encoder"
)

// Prober reports whether the runtime can really encode a format.
type Prober interface {
	Supports(ctx context.Context, f encoder.Format) bool
}

// SupportCache remembers probe results for the life of the process.
// Entries are never invalidated; concurrent writers store the same answer.
type SupportCache struct {
	m sync.Map // encoder.Format -> bool
}

// NewSupportCache returns an empty cache.
func NewSupportCache() *SupportCache { return &SupportCache{} }

// Lookup returns the cached answer for f, if any.
func (c *SupportCache) Lookup(f encoder.Format) (supported, ok bool) {
	v, ok := c.m.Load(f)
	if !ok {
		return false, false
	}
	return v.(bool), true
}

// Store records a probe result.
func (c *SupportCache) Store(f encoder.Format, supported bool) {
	c.m.Store(f, supported)
}

// FormatDecision is the format chosen for a run.
type FormatDecision struct {
	Format    encoder.Format
	Extension string
	MIMEType  string
}

func decide(f encoder.Format) FormatDecision {
	return FormatDecision{Format: f, Extension: f.Extension(), MIMEType: f.MIMEType()}
}

// candidateOrder is the fallback order after the preferred format.
var candidateOrder = []encoder.Format{encoder.WebP, encoder.AVIF, encoder.PNG, encoder.JPEG}

// lossyFallbackOrder is tried when a lossless result is oversized or an
// encoder fails.
var lossyFallbackOrder = []encoder.Format{encoder.WebP, encoder.AVIF, encoder.JPEG}

// Negotiate picks the first supported format among the preferred one and
// the fallbacks, probing all uncached candidates concurrently. JPEG is
// assumed when nothing probes as supported.
func Negotiate(ctx context.Context, preferred encoder.Format, prober Prober, cache *SupportCache) FormatDecision {
	candidates := dedupe(append([]encoder.Format{preferred}, candidateOrder...))
	supported := probeAll(ctx, candidates, prober, cache)

	for i, f := range candidates {
		if supported[i] {
			return decide(f)
		}
	}
	return decide(encoder.JPEG)
}

// lossyFallback returns the first supported lossy format not in tried.
func lossyFallback(ctx context.Context, tried map[encoder.Format]bool, prober Prober, cache *SupportCache) (FormatDecision, bool) {
	var candidates []encoder.Format
	for _, f := range lossyFallbackOrder {
		if !tried[f] {
			candidates = append(candidates, f)
		}
	}
	supported := probeAll(ctx, candidates, prober, cache)
	for i, f := range candidates {
		if supported[i] {
			return decide(f), true
		}
	}
	return FormatDecision{}, false
}

func probeAll(ctx context.Context, formats []encoder.Format, prober Prober, cache *SupportCache) []bool {
	results := make([]bool, len(formats))
	var wg sync.WaitGroup

	for i, f := range formats {
		if ok, hit := cache.Lookup(f); hit {
			results[i] = ok
			continue
		}
		wg.Add(1)
		go func(idx int, f encoder.Format) {
			defer wg.Done()
			ok := prober.Supports(ctx, f)
			// A probe cut short by cancellation is not an answer.
			if ctx.Err() == nil {
				cache.Store(f, ok)
			}
			results[idx] = ok
		}(i, f)
	}
	wg.Wait()

	return results
}

func dedupe(formats []encoder.Format) []encoder.Format {
	seen := make(map[encoder.Format]bool, len(formats))
	out := formats[:0:0]
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
