// Package cliui renders run progress and the final report to a
// terminal. Adapted from the teacher's internal/cli/cli.go (Docker-style
// phase/step/summary printing) combined with the progress bar the
// teacher drives from internal/indexer/indexer.go's status-ticker
// goroutine, here subscribed to internal/signal's about_to_index
// notification instead of polling pipeline-stage counters.
package cliui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/sudarshan/verindex/internal/report"
	"github.com/sudarshan/verindex/internal/signal"
)

// Reporter drives a progress bar and summary output for one run. It is
// not safe for concurrent use from multiple goroutines beyond the
// serial about_to_index delivery from the coordinator's goroutine.
type Reporter struct {
	quiet bool
	bar   *progressbar.ProgressBar
	pair  string
}

// New creates a Reporter. When quiet is true, all output is suppressed
// except Error, matching the teacher's CLI.quiet behavior.
func New(quiet bool) *Reporter {
	return &Reporter{quiet: quiet}
}

// StartPair begins progress reporting for one (feeder, index) pair.
func (r *Reporter) StartPair(feederName, indexName string, total int64) {
	r.pair = fmt.Sprintf("%s -> %s", feederName, indexName)
	if r.quiet {
		return
	}
	fmt.Println()
	fmt.Printf("Indexing %s...\n", r.pair)

	r.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("[cyan]Starting...[reset]"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// EndPair finishes the current pair's progress bar.
func (r *Reporter) EndPair() {
	if r.quiet || r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	fmt.Println()
	r.bar = nil
}

// OnAboutToIndex is registered with a signal.Subject to advance the bar
// and show a live command-count description.
func (r *Reporter) OnAboutToIndex(e signal.AboutToIndex) {
	if r.quiet || r.bar == nil {
		return
	}
	_ = r.bar.Set64(e.DocumentCount)
	r.bar.Describe(fmt.Sprintf("[cyan]%s[reset] commands:%d", e.IndexName, e.CommandCount))
}

// Error prints an error message regardless of quiet mode.
func (r *Reporter) Error(err error) {
	fmt.Printf("ERROR: %v\n", err)
}

// Summary prints the final IndexingReport, Docker "Successfully built"
// style, adapted from the teacher's CLI.Summary.
func (r *Reporter) Summary(rep report.IndexingReport) {
	if r.quiet {
		return
	}
	fmt.Println()
	fmt.Printf("Successfully completed indexing run (version %d)\n", rep.Version)
	fmt.Printf(" - sources: %s\n", strings.Join(rep.Sources, ", "))
	fmt.Printf(" - targets: %s\n", strings.Join(rep.Targets, ", "))
	fmt.Printf(" - documents: %d, commands: %d\n", rep.DocumentCount, rep.CommandCount)
	fmt.Printf(" - duration: %s\n", formatDuration(time.Duration(rep.DurationSeconds*float64(time.Second))))
	for index, counts := range rep.Operations {
		var parts []string
		for kind, n := range counts {
			parts = append(parts, fmt.Sprintf("%s:%d", kind, n))
		}
		fmt.Printf("   %s: %s\n", index, strings.Join(parts, " "))
	}
}

// formatDuration formats a duration in a human-readable way, ported
// from the teacher's internal/cli/cli.go.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
