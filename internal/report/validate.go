package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/imgfit/internal/hasher"
)

// Check verifies a report against the files under baseDir and against
// its own budget. It returns one message per problem found.
func Check(r *Report, baseDir string) []string {
	var errs []string

	if r.Version != SupportedReportVersion {
		errs = append(errs, fmt.Sprintf("unsupported report version: %d", r.Version))
	}

	seenPaths := map[string]string{}
	for key, e := range r.Entries {
		if e.Original.Width <= 0 || e.Original.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid original dimensions %dx%d",
				key, e.Original.Width, e.Original.Height))
		}

		out := e.Output
		if out.Format == "" {
			errs = append(errs, fmt.Sprintf("entry %q: empty output format", key))
		}
		if out.Width <= 0 || out.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid output dimensions %dx%d", key, out.Width, out.Height))
		}
		if r.Budget.MaxBytes > 0 && out.Size > int64(r.Budget.MaxBytes) {
			errs = append(errs, fmt.Sprintf("entry %q: %d B exceeds budget %d B", key, out.Size, r.Budget.MaxBytes))
		}
		if r.Budget.MaxWidth > 0 && out.Width > r.Budget.MaxWidth {
			errs = append(errs, fmt.Sprintf("entry %q: width %d exceeds %d", key, out.Width, r.Budget.MaxWidth))
		}
		if r.Budget.MaxHeight > 0 && out.Height > r.Budget.MaxHeight {
			errs = append(errs, fmt.Sprintf("entry %q: height %d exceeds %d", key, out.Height, r.Budget.MaxHeight))
		}
		if out.Hash == "" {
			errs = append(errs, fmt.Sprintf("entry %q: missing hash", key))
		}
		if out.Path == "" {
			errs = append(errs, fmt.Sprintf("entry %q: missing path", key))
			continue
		}

		if other, dup := seenPaths[out.Path]; dup {
			errs = append(errs, fmt.Sprintf("entry %q: path %q already used by %q", key, out.Path, other))
		}
		seenPaths[out.Path] = key

		data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(out.Path)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("entry %q: file not found: %s", key, out.Path))
			continue
		}
		if int64(len(data)) != out.Size {
			errs = append(errs, fmt.Sprintf("entry %q: size mismatch: report=%d, disk=%d", key, out.Size, len(data)))
		}
		if out.Hash != "" && hasher.ContentHash(data, len(out.Hash)) != out.Hash {
			errs = append(errs, fmt.Sprintf("entry %q: content hash mismatch", key))
		}
	}

	if r.Stats.TotalEntries != len(r.Entries) {
		errs = append(errs, fmt.Sprintf("stats.total_entries mismatch: %d != %d", r.Stats.TotalEntries, len(r.Entries)))
	}
	if r.Stats.TotalFailures != len(r.Failures) {
		errs = append(errs, fmt.Sprintf("stats.total_failures mismatch: %d != %d", r.Stats.TotalFailures, len(r.Failures)))
	}

	return errs
}
