package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const progressBarWidth = 30

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// SimpleProgress redraws a single progress line using carriage returns.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int64
	current int64
	started time.Time
	writer  io.Writer
	label   string
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressReporter(w io.Writer) *SimpleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer: w,
		label:  "cases",
	}
}

// WithLabel sets the unit shown after the counts.
func (p *SimpleProgress) WithLabel(label string) *SimpleProgress {
	p.label = label
	return p
}

// Start initializes the progress reporter with the total number of items.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()

	p.render()
}

// Update updates the current progress. Values above the total are clamped.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current > p.total {
		current = p.total
	}
	p.current = current
	p.render()
}

// Finish marks the progress as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n%s %v\n", BlockedStyle.Render("error:"), err)
}

func (p *SimpleProgress) render() {
	if p.total <= 0 {
		return
	}

	ratio := float64(p.current) / float64(p.total)
	filled := int(progressBarWidth * ratio)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", progressBarWidth-filled)

	elapsed := time.Since(p.started).Round(time.Millisecond)
	fmt.Fprintf(p.writer, "\r[%s] %3.0f%% %d/%d %s %s",
		bar, ratio*100, p.current, p.total, p.label, MutedStyle.Render(elapsed.String()))
}

var _ ProgressReporter = (*SimpleProgress)(nil)
