// Package geometry computes output canvas sizes and where source content
// is drawn on them.
package geometry

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Mode governs how content is placed inside a bounded canvas.
type Mode string

const (
	Contain Mode = "contain" // fit inside, letterbox
	Cover   Mode = "cover"   // fill, crop overflow
	Fill    Mode = "fill"    // stretch to canvas
	Inside  Mode = "inside"  // contain, never upscale
	Outside Mode = "outside" // cover, never below 1:1
)

// ParseMode validates a resize mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Contain, Cover, Fill, Inside, Outside:
		return m, nil
	}
	return "", fmt.Errorf("unknown resize mode %q", s)
}

// ShrinkFactor is applied to both axes when a lossy attempt misses the budget.
const ShrinkFactor = 0.9

// CanvasSize fits (origW, origH) inside (maxW, maxH) preserving aspect
// ratio and never upscaling. Results are at least 1 pixel per axis.
func CanvasSize(origW, origH, maxW, maxH int) (int, int) {
	if origW <= 0 || origH <= 0 {
		return 1, 1
	}
	scale := math.Min(float64(maxW)/float64(origW), float64(maxH)/float64(origH))
	scale = math.Min(scale, 1)

	return atLeastOne(math.Round(float64(origW) * scale)),
		atLeastOne(math.Round(float64(origH) * scale))
}

// DrawRect returns the destination rectangle, in canvas coordinates, for
// drawing a srcW×srcH source onto a w×h canvas. For cover and outside the
// rectangle can extend past the canvas; drawing clips the overflow.
func DrawRect(srcW, srcH, w, h int, mode Mode) image.Rectangle {
	if mode == Fill || srcW <= 0 || srcH <= 0 {
		return image.Rect(0, 0, w, h)
	}

	sx := float64(w) / float64(srcW)
	sy := float64(h) / float64(srcH)

	var scale float64
	switch mode {
	case Cover:
		scale = math.Max(sx, sy)
	case Inside:
		scale = math.Min(math.Min(sx, sy), 1)
	case Outside:
		scale = math.Max(math.Max(sx, sy), 1)
	default:
		scale = math.Min(sx, sy)
	}

	dw := atLeastOne(math.Round(float64(srcW) * scale))
	dh := atLeastOne(math.Round(float64(srcH) * scale))
	dx := int(math.Round(float64(w-dw) / 2))
	dy := int(math.Round(float64(h-dh) / 2))

	return image.Rect(dx, dy, dx+dw, dy+dh)
}

// Shrink scales both axes by ShrinkFactor, flooring and keeping each axis
// at least 1. ok is false when the size cannot get any smaller.
func Shrink(w, h int) (nw, nh int, ok bool) {
	nw = atLeastOne(math.Floor(float64(w) * ShrinkFactor))
	nh = atLeastOne(math.Floor(float64(h) * ShrinkFactor))
	return nw, nh, nw < w || nh < h
}

// Downscale divides both axes by divisor (floored, at least 1) when the
// source exceeds maxW*divisor or maxH*divisor. ok reports whether it did.
func Downscale(origW, origH, maxW, maxH int, divisor float64) (w, h int, ok bool) {
	if float64(origW) <= float64(maxW)*divisor && float64(origH) <= float64(maxH)*divisor {
		return origW, origH, false
	}
	return atLeastOne(math.Floor(float64(origW) / divisor)),
		atLeastOne(math.Floor(float64(origH) / divisor)),
		true
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}
