package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter provides progress feedback during long CLI tasks such as index
// generation and collection imports.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter returns a TerminalReporter when stderr is an interactive
// terminal, and a LineReporter in CI or when output is redirected.
func NewReporter(task string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		return &LineReporter{Task: task, Out: os.Stderr, Every: 10}
	}
	return &TerminalReporter{Task: task}
}

// TerminalReporter displays a progress bar, or a spinner while the total is
// unknown (Start with total <= 0, as for paged imports).
type TerminalReporter struct {
	Task string
	bar  *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	if total <= 0 {
		total = -1
	}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(r.Task),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(r.Task + ": " + message)
	_ = r.bar.Set(current)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// LineReporter prints plain progress lines suitable for logs. With Every > 1
// only every Every-th update and the last one are printed.
type LineReporter struct {
	Task  string
	Out   io.Writer
	Every int

	total   int
	started time.Time
}

func (r *LineReporter) Start(total int) {
	r.total = total
	r.started = time.Now()
	if total > 0 {
		fmt.Fprintf(r.Out, "%s: starting (%d items)\n", r.Task, total)
	} else {
		fmt.Fprintf(r.Out, "%s: starting\n", r.Task)
	}
}

func (r *LineReporter) Update(current int, message string) {
	if r.Every > 1 && current%r.Every != 0 && current != r.total {
		return
	}
	if r.total > 0 {
		fmt.Fprintf(r.Out, "[%d/%d] %s\n", current, r.total, message)
	} else {
		fmt.Fprintf(r.Out, "[%d] %s\n", current, message)
	}
}

func (r *LineReporter) Finish() {
	fmt.Fprintf(r.Out, "%s: done in %s\n", r.Task, time.Since(r.started).Round(time.Millisecond))
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(int)          {}
func (Nop) Update(int, string) {}
func (Nop) Finish()            {}
