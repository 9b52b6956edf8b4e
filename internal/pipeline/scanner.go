package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// Source represents a discovered image file.
type Source struct {
	// AbsPath is the absolute path to the file on disk.
	AbsPath string
	// RelPath is the path relative to the input root.
	RelPath string
	// Key is the entry key: relpath without extension, or the full relpath
	// when another source in the same directory shares the stem.
	Key string
	// Format is the source format by extension (png, jpeg, webp, ...).
	Format string
	// Size is the file size in bytes.
	Size int64
}

// imageExtensions lists recognized image file extensions.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".avif": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// ScanImages returns the image sources under input. A single file is
// returned as-is, keyed by its basename; directories are walked,
// skipping hidden ones.
func ScanImages(input string) ([]Source, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		src, ok := newSource(filepath.Dir(input), input, info)
		if !ok {
			return nil, nil
		}
		return []Source{src}, nil
	}

	var sources []Source
	err = filepath.Walk(input, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != input {
				return filepath.SkipDir
			}
			return nil
		}
		if src, ok := newSource(input, path, info); ok {
			sources = append(sources, src)
		}
		return nil
	})

	return disambiguate(sources), err
}

// disambiguate keeps the extension in the keys of sources whose stems
// collide (a.png and a.jpg), so each gets its own entry and output file.
func disambiguate(sources []Source) []Source {
	count := make(map[string]int, len(sources))
	for _, s := range sources {
		count[s.Key]++
	}
	for i, s := range sources {
		if count[s.Key] > 1 {
			sources[i].Key = s.RelPath
		}
	}
	return sources
}

// keepsExt reports whether the key was disambiguated with its extension.
func (s Source) keepsExt() bool { return s.Key == s.RelPath }

func newSource(root, path string, info os.FileInfo) (Source, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if !imageExtensions[ext] {
		return Source{}, false
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return Source{}, false
	}

	format := strings.TrimPrefix(ext, ".")
	switch format {
	case "jpg":
		format = "jpeg"
	case "tif":
		format = "tiff"
	}

	return Source{
		AbsPath: path,
		RelPath: filepath.ToSlash(relPath),
		Key:     filepath.ToSlash(strings.TrimSuffix(relPath, filepath.Ext(relPath))),
		Format:  format,
		Size:    info.Size(),
	}, true
}
