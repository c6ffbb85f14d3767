// Package output renders CLI results as colored text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Printer writes human output to out and failures to errOut. In JSON mode
// only JSON writes anything; quiet mode keeps failures visible.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	json   bool
	quiet  bool
}

type Option func(*Printer)

func WithJSON(enabled bool) Option { return func(p *Printer) { p.json = enabled } }

func WithQuiet(enabled bool) Option { return func(p *Printer) { p.quiet = enabled } }

// WithNoColor turns color off process-wide.
func WithNoColor(disabled bool) Option {
	return func(*Printer) {
		if disabled {
			color.NoColor = true
		}
	}
}

func WithOutput(w io.Writer) Option { return func(p *Printer) { p.out = w } }

func WithErrOutput(w io.Writer) Option { return func(p *Printer) { p.errOut = w } }

func New(opts ...Option) *Printer {
	p := &Printer{out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	infoMark = color.New(color.FgCyan).SprintFunc()
	dim      = color.New(color.FgHiBlack).SprintFunc()
)

func (p *Printer) silent() bool { return p.quiet || p.json }

func (p *Printer) mark(mark, format string, args []any) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", mark, fmt.Sprintf(format, args...))
}

func (p *Printer) Printf(format string, args ...any) {
	if !p.silent() {
		fmt.Fprintf(p.out, format, args...)
	}
}

func (p *Printer) Println(args ...any) {
	if !p.silent() {
		fmt.Fprintln(p.out, args...)
	}
}

func (p *Printer) Success(format string, args ...any) { p.mark(okMark("✓"), format, args) }

func (p *Printer) Warn(format string, args ...any) { p.mark(warnMark("!"), format, args) }

func (p *Printer) Info(format string, args ...any) { p.mark(infoMark("→"), format, args) }

// Error goes to errOut and ignores quiet.
func (p *Printer) Error(format string, args ...any) {
	if p.json {
		return
	}
	fmt.Fprintf(p.errOut, "%s %s\n", failMark("✗"), fmt.Sprintf(format, args...))
}

// JSON always writes, indented, to out.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) Section(title string) {
	if !p.silent() {
		fmt.Fprintf(p.out, "\n%s\n", color.New(color.Bold, color.FgCyan).Sprint(title))
	}
}

func (p *Printer) KeyValue(key, value string) {
	if !p.silent() {
		fmt.Fprintf(p.out, "  %s: %s\n", dim(key), value)
	}
}

// Summary closes a batch upload.
func (p *Printer) Summary(succeeded, failed int) {
	if p.silent() {
		return
	}
	total := succeeded + failed
	fmt.Fprintln(p.out)
	if failed > 0 {
		fmt.Fprintln(p.out, warnMark(fmt.Sprintf("%d/%d uploaded (%d failed)", succeeded, total, failed)))
		return
	}
	fmt.Fprintln(p.out, okMark(fmt.Sprintf("%d/%d uploaded successfully", succeeded, total)))
}

func (p *Printer) FileUploaded(path, url, signedURL string) {
	if p.silent() {
		return
	}
	fmt.Fprintf(p.out, "%s %s %s %s\n", okMark("✓"), path, infoMark("→"), url)
	if signedURL != "" {
		fmt.Fprintf(p.out, "  %s signed: %s\n", dim("└─"), signedURL)
	}
}

func (p *Printer) FileFailed(path string, err error) {
	p.Error("%s: %v", path, err)
}
