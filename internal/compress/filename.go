package compress

import (
	"path/filepath"
	"strings"
)

const genericBasename = "image"

// outputFilename picks the name of the result: the override as given
// (with ext appended when it has none), else the source basename with
// ext, else a generic name.
func outputFilename(override, source, ext string) string {
	if override != "" {
		if filepath.Ext(override) == "" {
			return override + "." + ext
		}
		return override
	}

	base := filepath.Base(filepath.ToSlash(source))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if source == "" || base == "" || base == "." || base == "/" {
		base = genericBasename
	}
	return base + "." + ext
}
