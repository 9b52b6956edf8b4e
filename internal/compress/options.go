package compress

import (
	"fmt"
	"math"

	"github.com/AnyUserName/imgfit/internal/canvas"
	"github.com/AnyUserName/imgfit/internal/encoder"
	"github.com/AnyUserName/imgfit/internal/geometry"
)

// Options configures one compression call. Start from DefaultOptions:
// numeric fields are taken as given, so an explicit zero MinQuality is
// honoured and a zero MaxSizeMB is rejected. MaxHeight 0 means "same as
// MaxWidth"; empty enum fields take their defaults on Resolve.
type Options struct {
	MaxSizeMB        float64
	Quality          float64 // starting quality, (0,1]
	MinQuality       float64 // [0,1)
	MaxWidth         int
	MaxHeight        int
	ResizeMode       geometry.Mode
	PreferredFormat  encoder.Format
	PreserveExif     bool
	Progressive      bool
	Debug            bool
	OutputFilename   string
	DownscaleDivisor float64
	Smoothing        canvas.Smoothing

	// AllowSizeRegression returns the re-encoded result even when the
	// input already fits and is smaller.
	AllowSizeRegression bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxSizeMB:        0.1,
		Quality:          0.9,
		MinQuality:       0.1,
		MaxWidth:         800,
		ResizeMode:       geometry.Contain,
		PreferredFormat:  encoder.WebP,
		DownscaleDivisor: 5,
		Smoothing:        canvas.High,
	}
}

// Resolve fills MaxHeight from MaxWidth when unset and empty enum
// fields from DefaultOptions. Numeric fields are left alone.
func (o Options) Resolve() Options {
	d := DefaultOptions()
	if o.MaxHeight == 0 {
		o.MaxHeight = o.MaxWidth
	}
	if o.ResizeMode == "" {
		o.ResizeMode = d.ResizeMode
	}
	if o.PreferredFormat == "" {
		o.PreferredFormat = d.PreferredFormat
	}
	if o.Smoothing == "" {
		o.Smoothing = d.Smoothing
	}
	return o
}

// Validate checks a resolved Options value.
func (o Options) Validate() error {
	switch {
	case !(o.MaxSizeMB > 0) || math.IsInf(o.MaxSizeMB, 1):
		return fmt.Errorf("maxSizeMB must be positive, got %v", o.MaxSizeMB)
	case o.MaxWidth <= 0:
		return fmt.Errorf("maxWidth must be positive, got %d", o.MaxWidth)
	case o.MaxHeight <= 0:
		return fmt.Errorf("maxHeight must be positive, got %d", o.MaxHeight)
	case !(o.Quality > 0 && o.Quality <= 1):
		return fmt.Errorf("quality must be in (0,1], got %v", o.Quality)
	case !(o.MinQuality >= 0 && o.MinQuality < 1):
		return fmt.Errorf("minQuality must be in [0,1), got %v", o.MinQuality)
	case o.MinQuality > o.Quality:
		return fmt.Errorf("minQuality %v exceeds quality %v", o.MinQuality, o.Quality)
	case !(o.DownscaleDivisor > 1):
		return fmt.Errorf("downscaleDivisor must be > 1, got %v", o.DownscaleDivisor)
	}
	if _, err := geometry.ParseMode(string(o.ResizeMode)); err != nil {
		return err
	}
	if _, err := encoder.ParseFormat(string(o.PreferredFormat)); err != nil {
		return err
	}
	if _, err := canvas.ParseSmoothing(string(o.Smoothing)); err != nil {
		return err
	}
	return nil
}

// MaxBytes is the byte budget, MaxSizeMB in binary megabytes.
func (o Options) MaxBytes() int {
	return int(o.MaxSizeMB * 1024 * 1024)
}
