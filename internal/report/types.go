package report

// Report is the top-level output of an imgfit batch run.
type Report struct {
	Version     int               `json:"version"`
	GeneratedAt string            `json:"generated_at"`
	Profile     string            `json:"profile"`
	Budget      Budget            `json:"budget"`
	BuildInfo   *BuildInfo        `json:"build_info,omitempty"`
	Entries     map[string]Entry  `json:"entries"`
	Failures    map[string]string `json:"failures,omitempty"` // key -> error message
	Stats       Stats             `json:"stats"`
}

// Budget records the constraints every entry was compressed under.
type Budget struct {
	MaxBytes   int    `json:"max_bytes"`
	MaxWidth   int    `json:"max_width"`
	MaxHeight  int    `json:"max_height"`
	ResizeMode string `json:"resize_mode"`
	Preferred  string `json:"preferred_format"`
}

// BuildInfo captures run parameters for diagnostics.
type BuildInfo struct {
	Workers  int      `json:"workers"`
	Encoders []string `json:"encoders"` // formats that probed as supported
}

// Entry describes one source image and its compressed output.
type Entry struct {
	Original OriginalInfo `json:"original"`
	Output   OutputInfo   `json:"output"`
	Attempts int          `json:"attempts"`
}

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// OutputInfo describes the file written for an entry.
type OutputInfo struct {
	Format    string  `json:"format"` // "avif", "webp", "jpeg", "png"
	MIMEType  string  `json:"mime_type"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Size      int64   `json:"size"`              // bytes on disk
	Quality   float64 `json:"quality,omitempty"` // 0 for lossless
	Hash      string  `json:"hash"`              // 16 hex chars of xxhash64
	Path      string  `json:"path"`              // relative to the report
	Unchanged bool    `json:"unchanged,omitempty"`
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalEntries     int   `json:"total_entries"`
	TotalFailures    int   `json:"total_failures,omitempty"`
	Unchanged        int   `json:"unchanged,omitempty"` // inputs kept as-is
}

// SupportedReportVersion is the current schema version.
const SupportedReportVersion = 1

// FileName is the report's name inside the output directory.
const FileName = "imgfit.report.json"
