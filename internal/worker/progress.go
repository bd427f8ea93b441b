package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress renders a single-line progress bar for long fetch runs.
type Progress struct {
	out     io.Writer
	started time.Time
	enabled bool

	mu        sync.Mutex
	completed int
	total     int
	failed    int
}

// NewProgress creates a progress bar writing to stderr. A disabled bar only
// keeps counters for Summary.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		out:     os.Stderr,
		started: time.Now(),
		enabled: enabled,
		total:   total,
	}
}

// Update records the latest counters and redraws when enabled.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed, p.total, p.failed = completed, total, failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback adapts Update to Config.OnProgress.
func (p *Progress) Callback() ProgressFunc { return p.Update }

// Print redraws the bar in place.
func (p *Progress) Print() {
	fmt.Fprint(p.out, "\r"+p.line()+"          ")
}

// Done prints the final line and moves to a new one.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.out)
	}
}

func (p *Progress) line() string {
	p.mu.Lock()
	completed, total, failed := p.completed, p.total, p.failed
	p.mu.Unlock()

	elapsed := time.Since(p.started)
	rate := tilesPerSecond(completed, elapsed)

	filled := 0
	if total > 0 {
		filled = min(barWidth, completed*barWidth/total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s%s] %d/%d tiles",
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), completed, total)
	if failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", failed)
	}
	fmt.Fprintf(&b, " - %.1f tiles/sec", rate)
	switch {
	case completed >= total:
		fmt.Fprintf(&b, " - Done in %s", formatDuration(elapsed))
	case rate > 0:
		eta := time.Duration(float64(total-completed)/rate) * time.Second
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	return b.String()
}

// Summary describes the finished run.
func (p *Progress) Summary() string {
	p.mu.Lock()
	completed, total, failed := p.completed, p.total, p.failed
	p.mu.Unlock()

	elapsed := time.Since(p.started)
	return fmt.Sprintf("Fetched %d/%d tiles (%d failed) in %s (%.1f tiles/sec)",
		completed-failed, total, failed, formatDuration(elapsed), tilesPerSecond(completed, elapsed))
}

func tilesPerSecond(n int, d time.Duration) float64 {
	if n == 0 || d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
