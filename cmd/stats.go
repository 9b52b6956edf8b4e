package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AnyUserName/imgfit/internal/report"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_report>",
	Short: "Display statistics for a compressed output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path, err := reportPath(args[0])
	if err != nil {
		return err
	}

	r, err := report.ReadJSON(path)
	if err != nil {
		return err
	}

	printStats(r)
	return nil
}

// reportPath resolves a directory to the report inside it.
func reportPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, report.FileName)
	}
	logVerbose("report: %s", path)
	return path, nil
}

func printStats(r *report.Report) {
	fmt.Println()
	fmt.Printf("  Report version:   %d\n", r.Version)
	fmt.Printf("  Generated:        %s\n", r.GeneratedAt)
	fmt.Printf("  Profile:          %s\n", r.Profile)
	fmt.Printf("  Budget:           %s, max %dx%d (%s, prefer %s)\n",
		formatBytes(int64(r.Budget.MaxBytes)), r.Budget.MaxWidth, r.Budget.MaxHeight,
		r.Budget.ResizeMode, r.Budget.Preferred)
	if r.BuildInfo != nil {
		fmt.Printf("  Workers:          %d\n", r.BuildInfo.Workers)
		fmt.Printf("  Encoders:         %v\n", r.BuildInfo.Encoders)
	}
	fmt.Println()

	s := r.Stats
	fmt.Printf("  Total images:     %d\n", s.TotalEntries)
	fmt.Printf("  Failures:         %d\n", s.TotalFailures)
	fmt.Printf("  Unchanged:        %d\n", s.Unchanged)
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Printf("  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Println()

	// Per-format breakdown.
	formatStats := map[string]struct {
		count int
		bytes int64
	}{}
	for _, e := range r.Entries {
		fs := formatStats[e.Output.Format]
		fs.count++
		fs.bytes += e.Output.Size
		formatStats[e.Output.Format] = fs
	}

	fmt.Println("  Format breakdown:")
	for _, f := range []string{"avif", "webp", "jpeg", "png"} {
		if fs, ok := formatStats[f]; ok {
			fmt.Printf("    %-6s  %4d files  %s\n", f, fs.count, formatBytes(fs.bytes))
		}
	}
	fmt.Println()

	// Attempts breakdown.
	attemptStats := map[int]int{}
	for _, e := range r.Entries {
		attemptStats[e.Attempts]++
	}
	var attempts []int
	for a := range attemptStats {
		attempts = append(attempts, a)
	}
	sort.Ints(attempts)
	fmt.Println("  Attempts breakdown:")
	for _, a := range attempts {
		fmt.Printf("    %d attempt(s)  %4d images\n", a, attemptStats[a])
	}
	fmt.Println()

	// Warnings.
	var warnings []string
	for key, e := range r.Entries {
		if e.Original.Format != "" && e.Output.Format != e.Original.Format && !e.Output.Unchanged &&
			e.Output.Format != r.Budget.Preferred {
			warnings = append(warnings, fmt.Sprintf("%q fell back to %s", key, e.Output.Format))
		}
		if e.Output.Width < e.Original.Width && e.Attempts > 1 {
			warnings = append(warnings, fmt.Sprintf("%q shrunk to %dx%d to fit", key, e.Output.Width, e.Output.Height))
		}
	}
	for key, msg := range r.Failures {
		warnings = append(warnings, fmt.Sprintf("%q failed: %s", key, msg))
	}
	sort.Strings(warnings)
	if len(warnings) > 0 {
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
		fmt.Println()
	}
}
