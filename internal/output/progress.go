package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress counts finished files of a batch upload. Done may be called from
// several goroutines.
type Progress struct {
	bar   *progressbar.ProgressBar
	quiet bool
	out   io.Writer

	mu     sync.Mutex
	done   int
	failed int
}

type ProgressOption func(*Progress)

func ProgressWithQuiet(quiet bool) ProgressOption {
	return func(p *Progress) {
		p.quiet = quiet
	}
}

func ProgressWithOutput(out io.Writer) ProgressOption {
	return func(p *Progress) {
		p.out = out
	}
}

func NewProgress(total int, opts ...ProgressOption) *Progress {
	p := &Progress{out: os.Stderr}
	for _, opt := range opts {
		opt(p)
	}
	if p.quiet {
		return p
	}

	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(p.out)
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return p
}

// Done records one finished file. A non-nil err counts it as failed and
// turns the description red.
func (p *Progress) Done(err error) {
	p.mu.Lock()
	p.done++
	if err != nil {
		p.failed++
	}
	failed := p.failed
	p.mu.Unlock()

	if p.bar == nil {
		return
	}
	if err != nil {
		p.bar.Describe(fmt.Sprintf("[red]Uploading (%d failed)[reset]", failed))
	}
	_ = p.bar.Add(1)
}

// Counts returns finished and failed totals so far.
func (p *Progress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

func (p *Progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Spinner shows activity for a single request of unknown length, such as
// presigning.
type Spinner struct {
	bar *progressbar.ProgressBar
}

func NewSpinner(out io.Writer, description string, quiet bool) *Spinner {
	if quiet {
		return &Spinner{}
	}
	return &Spinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(out),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (s *Spinner) Stop() {
	if s.bar != nil {
		_ = s.bar.Finish()
	}
}
