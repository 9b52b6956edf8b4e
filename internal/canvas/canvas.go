// Package canvas provides an offscreen drawing surface.
package canvas

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// Smoothing selects the interpolation used when drawing scaled content.
type Smoothing string

const (
	Low    Smoothing = "low"
	Medium Smoothing = "medium"
	High   Smoothing = "high"
)

// ParseSmoothing validates a smoothing quality name.
func ParseSmoothing(s string) (Smoothing, error) {
	q := Smoothing(strings.ToLower(strings.TrimSpace(s)))
	switch q {
	case Low, Medium, High:
		return q, nil
	}
	return "", fmt.Errorf("unknown smoothing quality %q", s)
}

func (s Smoothing) scaler() draw.Scaler {
	switch s {
	case Low:
		return draw.ApproxBiLinear
	case Medium:
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}

// Canvas is a transparent NRGBA surface of fixed pixel dimensions.
type Canvas struct {
	img *image.NRGBA
}

// New allocates a w×h canvas.
func New(w, h int) *Canvas {
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, w, h))}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.img.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.img.Rect.Dy() }

// Draw scales the sr region of src into dr on the canvas. Parts of dr
// outside the canvas are clipped.
func (c *Canvas) Draw(src image.Image, sr, dr image.Rectangle, quality Smoothing) {
	quality.scaler().Scale(c.img, dr, src, sr, draw.Over, nil)
}

// Image returns the canvas contents. The result aliases the canvas.
func (c *Canvas) Image() image.Image { return c.img }

// Release drops the pixel buffer. The canvas must not be used afterwards.
func (c *Canvas) Release() {
	c.img = &image.NRGBA{}
}
