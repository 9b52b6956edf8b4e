//go:build ignore

// gen_fixtures writes images that exercise each compression path:
// pre-downscale, lossless fallback, canvas shrink and the unchanged
// pass-through.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	if err := os.MkdirAll(filepath.Join(dir, "photos"), 0o755); err != nil {
		fail(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))

	// Wider than 5x the default max width: pre-downscaled before fitting.
	save(filepath.Join(dir, "panorama.jpg"), gradient(4800, 600), imaging.JPEGQuality(90))

	// Noise defeats PNG; forces the lossy fallback and a canvas shrink.
	save(filepath.Join(dir, "photos", "noise.png"), noise(rng, 1200, 900))

	// Already tiny JPEGs come back unchanged.
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("flat-%d.jpg", i)
		save(filepath.Join(dir, "photos", name), solid(64, 48, uint8(i*60)), imaging.JPEGQuality(40))
	}

	// Alpha survives lossless and WebP outputs.
	save(filepath.Join(dir, "logo.png"), alphaGradient(100, 100))

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 6 fixtures in %s\n", dir)
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: uint8((x / 16) ^ (y / 16)),
				A: 255,
			})
		}
	}
	return img
}

func noise(rng *rand.Rand, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		v := rng.Uint32()
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(v), uint8(v>>8), uint8(v>>16), 255
	}
	return img
}

func solid(w, h int, base uint8) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: base, G: base + 40, B: base + 80, A: 255})
}

func alphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

func save(path string, img image.Image, opts ...imaging.EncodeOption) {
	if err := imaging.Save(img, path, opts...); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "[gen_fixtures]", err)
	os.Exit(1)
}
