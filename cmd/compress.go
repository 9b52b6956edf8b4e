package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AnyUserName/imgfit/internal/canvas"
	"github.com/AnyUserName/imgfit/internal/compress"
	"github.com/AnyUserName/imgfit/internal/encoder"
	"github.com/AnyUserName/imgfit/internal/geometry"
	"github.com/AnyUserName/imgfit/internal/pipeline"
	"github.com/AnyUserName/imgfit/internal/profile"
	"github.com/AnyUserName/imgfit/internal/report"
	"github.com/spf13/cobra"
)

var (
	compressOutDir       string
	compressProfile      string
	compressWorkers      int
	compressMaxSizeMB    float64
	compressQuality      float64
	compressMinQuality   float64
	compressMaxWidth     int
	compressMaxHeight    int
	compressMode         string
	compressFormat       string
	compressSmoothing    string
	compressDivisor      float64
	compressName         string
	compressPreserveExif bool
	compressProgressive  bool
	compressHash         bool
	compressAllowRegress bool
)

var compressCmd = &cobra.Command{
	Use:   "compress <file_or_dir>",
	Short: "Re-encode images under a size budget and write a report",
	Long: `Compresses a single image or every image under a directory
(png, jpg, jpeg, webp, avif, gif, bmp, tiff).

Each output is at most --max-size-mb and fits --max-width x --max-height.
Flags override the selected profile. Outputs keep the source name with
the negotiated extension, or <name>.<hash8>.<ext> with --hash.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func init() {
	f := compressCmd.Flags()
	f.StringVarP(&compressOutDir, "out", "o", "./imgfit_out", "output directory")
	f.StringVarP(&compressProfile, "profile", "p", "default", "option profile ("+strings.Join(profile.Names(), ", ")+")")
	f.IntVarP(&compressWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	f.Float64Var(&compressMaxSizeMB, "max-size-mb", 0, "byte budget in MiB")
	f.Float64VarP(&compressQuality, "quality", "q", 0, "starting quality in (0,1]")
	f.Float64Var(&compressMinQuality, "min-quality", 0, "lowest quality tried in [0,1)")
	f.IntVar(&compressMaxWidth, "max-width", 0, "maximum output width")
	f.IntVar(&compressMaxHeight, "max-height", 0, "maximum output height (default max-width)")
	f.StringVar(&compressMode, "mode", "", "resize mode: contain, cover, fill, inside, outside")
	f.StringVarP(&compressFormat, "format", "f", "", "preferred format: webp, avif, png, jpeg")
	f.StringVar(&compressSmoothing, "smoothing", "", "resampling quality: low, medium, high")
	f.Float64Var(&compressDivisor, "divisor", 0, "pre-downscale divisor for oversized sources")
	f.StringVar(&compressName, "name", "", "output filename (single file input only)")
	f.BoolVar(&compressPreserveExif, "preserve-exif", false, "carry EXIF into WebP outputs")
	f.BoolVar(&compressProgressive, "progressive", false, "request progressive encoding where supported")
	f.BoolVar(&compressHash, "hash", false, "content-addressed output names")
	f.BoolVar(&compressAllowRegress, "allow-regress", false, "keep re-encoded output even if larger than a fitting input")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	start := time.Now()

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(compressOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	prof := profile.Get(compressProfile)
	opts, err := applyFlags(cmd, prof.Options)
	if err != nil {
		return err
	}
	if opts.OutputFilename != "" {
		if info, err := os.Stat(absInput); err == nil && info.IsDir() {
			return fmt.Errorf("--name requires a single input file")
		}
	}
	opts = opts.Resolve()

	logVerbose("input:   %s", absInput)
	logVerbose("output:  %s", absOutput)
	logVerbose("profile: %s (budget=%s, max=%dx%d, mode=%s, format=%s)",
		prof.Name, formatBytes(int64(opts.MaxBytes())), opts.MaxWidth, opts.MaxHeight,
		opts.ResizeMode, opts.PreferredFormat)

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		Input:       absInput,
		OutputDir:   absOutput,
		Profile:     prof.Name,
		Options:     opts,
		Workers:     compressWorkers,
		Verbose:     verbose,
		ContentHash: compressHash,
	})

	r, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	reportPath := filepath.Join(absOutput, report.FileName)
	if err := report.WriteJSON(r, reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printCompressReport(r, time.Since(start))
	return nil
}

// applyFlags overlays explicitly set flags on the profile options.
func applyFlags(cmd *cobra.Command, o compress.Options) (compress.Options, error) {
	changed := cmd.Flags().Changed

	if changed("max-size-mb") {
		o.MaxSizeMB = compressMaxSizeMB
	}
	if changed("quality") {
		o.Quality = compressQuality
	}
	if changed("min-quality") {
		o.MinQuality = compressMinQuality
	}
	if changed("max-width") {
		o.MaxWidth = compressMaxWidth
	}
	if changed("max-height") {
		o.MaxHeight = compressMaxHeight
	}
	if changed("mode") {
		m, err := geometry.ParseMode(compressMode)
		if err != nil {
			return o, err
		}
		o.ResizeMode = m
	}
	if changed("format") {
		f, err := encoder.ParseFormat(compressFormat)
		if err != nil {
			return o, err
		}
		o.PreferredFormat = f
	}
	if changed("smoothing") {
		s, err := canvas.ParseSmoothing(compressSmoothing)
		if err != nil {
			return o, err
		}
		o.Smoothing = s
	}
	if changed("divisor") {
		o.DownscaleDivisor = compressDivisor
	}
	if changed("name") {
		o.OutputFilename = compressName
	}
	if changed("preserve-exif") {
		o.PreserveExif = compressPreserveExif
	}
	if changed("progressive") {
		o.Progressive = compressProgressive
	}
	if changed("allow-regress") {
		o.AllowSizeRegression = compressAllowRegress
	}
	return o, nil
}

func printCompressReport(r *report.Report, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║             imgfit compress complete             ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()

	stats := r.Stats
	ratio := float64(0)
	if stats.TotalInputBytes > 0 {
		ratio = float64(stats.TotalOutputBytes) / float64(stats.TotalInputBytes) * 100
	}

	fmt.Printf("  Images:      %d\n", stats.TotalEntries)
	if stats.TotalFailures > 0 {
		fmt.Printf("  Failed:      %d\n", stats.TotalFailures)
	}
	fmt.Printf("  Budget:      %s per image, max %dx%d (%s)\n",
		formatBytes(int64(r.Budget.MaxBytes)), r.Budget.MaxWidth, r.Budget.MaxHeight, r.Budget.ResizeMode)
	fmt.Printf("  Input size:  %s\n", formatBytes(stats.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(stats.TotalOutputBytes))
	fmt.Printf("  Ratio:       %.1f%% of original\n", ratio)
	if stats.Unchanged > 0 {
		fmt.Printf("  Unchanged:   %d (already within budget)\n", stats.Unchanged)
	}
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if r.BuildInfo != nil {
		fmt.Printf("  Workers:     %d\n", r.BuildInfo.Workers)
	}
	fmt.Println()

	if len(r.Entries) > 0 {
		type entrySize struct {
			key        string
			inputSize  int64
			outputSize int64
		}
		var items []entrySize
		for key, e := range r.Entries {
			items = append(items, entrySize{key, e.Original.Size, e.Output.Size})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].inputSize != items[j].inputSize {
				return items[i].inputSize > items[j].inputSize
			}
			return items[i].key < items[j].key
		})
		n := min(len(items), 10)
		fmt.Printf("  Top %d heaviest (original → fitted):\n", n)
		for _, it := range items[:n] {
			saved := float64(0)
			if it.inputSize > 0 {
				saved = (1 - float64(it.outputSize)/float64(it.inputSize)) * 100
			}
			fmt.Printf("    %-40s %8s → %8s  (−%.0f%%)\n",
				truncKey(it.key, 40),
				formatBytes(it.inputSize),
				formatBytes(it.outputSize),
				saved,
			)
		}
		fmt.Println()
	}

	fmt.Printf("  Formats:     %s\n", strings.Join(detectOutputFormats(r), ", "))
	if r.BuildInfo != nil {
		fmt.Printf("  Encoders:    %s\n", strings.Join(r.BuildInfo.Encoders, ", "))
	}
	fmt.Println()

	data, _ := json.Marshal(r)
	fmt.Printf("  Report:      %s (%s)\n", report.FileName, formatBytes(int64(len(data))))
	fmt.Println()
}

func detectOutputFormats(r *report.Report) []string {
	set := map[string]bool{}
	for _, e := range r.Entries {
		set[e.Output.Format] = true
	}
	var out []string
	for _, f := range []string{"avif", "webp", "jpeg", "png"} {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
