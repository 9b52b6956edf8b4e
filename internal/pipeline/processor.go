package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/imgfit/internal/compress"
	"github.com/AnyUserName/imgfit/internal/hasher"
	"github.com/AnyUserName/imgfit/internal/report"
)

// processResult holds the result of processing a single source image.
type processResult struct {
	key   string
	entry report.Entry
	err   error
}

// processImage compresses one source and writes the output file.
func processImage(ctx context.Context, src Source, cfg Config, c *compress.Compressor) processResult {
	result := processResult{key: src.Key}

	data, err := os.ReadFile(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("read %s: %w", src.RelPath, err)
		return result
	}

	out, err := c.Compress(ctx, data, filepath.Base(src.RelPath), cfg.Options)
	if err != nil {
		result.err = fmt.Errorf("compress %s: %w", src.RelPath, err)
		return result
	}

	contentHash := hasher.ContentHash(out.Data, 16)

	// Name: <name>.<ext>, or <name>.<hash8>.<ext> when content-addressed.
	// Colliding stems keep their source extension: a.png -> a.png.webp.
	fileName := out.Filename
	if src.keepsExt() {
		fileName = path.Base(src.Key) + "." + out.Format.Extension()
	}
	if cfg.ContentHash {
		ext := filepath.Ext(fileName)
		fileName = fmt.Sprintf("%s.%s%s", strings.TrimSuffix(fileName, ext), contentHash[:8], ext)
	}
	keyDir := filepath.Dir(filepath.FromSlash(src.Key))
	relPath := filepath.ToSlash(filepath.Join(keyDir, fileName))

	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		result.err = fmt.Errorf("create dir for %s: %w", relPath, err)
		return result
	}
	if err := os.WriteFile(outPath, out.Data, 0o644); err != nil {
		result.err = fmt.Errorf("write %s: %w", relPath, err)
		return result
	}

	result.entry = report.Entry{
		Original: report.OriginalInfo{
			Width:  out.SourceWidth,
			Height: out.SourceHeight,
			Format: src.Format,
			Size:   src.Size,
		},
		Output: report.OutputInfo{
			Format:    string(out.Format),
			MIMEType:  out.MIMEType,
			Width:     out.Width,
			Height:    out.Height,
			Size:      int64(out.Size()),
			Quality:   out.Quality,
			Hash:      contentHash,
			Path:      relPath,
			Unchanged: out.Unchanged,
		},
		Attempts: out.Attempts,
	}
	return result
}
