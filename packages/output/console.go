package output

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
	"github.com/abdul-hamid-achik/rede/packages/core/parser"
	redehttp "github.com/abdul-hamid-achik/rede/packages/http"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) paint(attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if f.noColor {
		c.DisableColor()
	}
	return c.SprintFunc()
}

// FormatError writes err as a single "<prefix>: <detail>" line.
func (f *ConsoleFormatter) FormatError(err error) {
	red := f.paint(color.FgRed, color.Bold)

	var ferr *failure.Error
	if errors.As(err, &ferr) {
		if ferr.Detail == "" {
			fmt.Fprintln(f.writer, red(ferr.Kind.Prefix()))
			return
		}
		fmt.Fprintf(f.writer, "%s: %s\n", red(ferr.Kind.Prefix()), ferr.Detail)
		return
	}
	fmt.Fprintf(f.writer, "%s: %v\n", red("error"), err)
}

// FormatValid lists the requests of a file that parsed cleanly.
func (f *ConsoleFormatter) FormatValid(file *parser.File) {
	green := f.paint(color.FgGreen)
	cyan := f.paint(color.FgCyan)

	fmt.Fprintf(f.writer, "%s %s\n", green("Valid:"), file.Path)
	if !f.verbose {
		return
	}
	for _, req := range file.Requests {
		name := req.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", cyan(req.Method), req.URL, name)
	}
}

func (f *ConsoleFormatter) FormatInvalid(path string, err error) {
	red := f.paint(color.FgRed)
	fmt.Fprintf(f.writer, "%s %s\n", red("Invalid:"), path)
	f.FormatError(err)
}

// FormatSummary writes the status line and timing of resp. Timings never
// appear in the JSON report.
func (f *ConsoleFormatter) FormatSummary(resp *redehttp.Response) {
	if !f.verbose {
		return
	}
	green := f.paint(color.FgGreen)
	yellow := f.paint(color.FgYellow)
	red := f.paint(color.FgRed)

	status := fmt.Sprintf("%d %s", resp.StatusCode, resp.StatusText)
	switch {
	case resp.IsSuccess():
		status = green(status)
	case resp.IsRedirect():
		status = yellow(status)
	default:
		status = red(status)
	}
	fmt.Fprintf(f.writer, "%s %s (%dms", resp.Proto, status, resp.DurationMs())
	if resp.Redirects > 0 {
		fmt.Fprintf(f.writer, ", %d redirects", resp.Redirects)
	}
	fmt.Fprintln(f.writer, ")")
}

func (f *ConsoleFormatter) FormatWatching(files []string) {
	cyan := f.paint(color.FgCyan)
	fmt.Fprintf(f.writer, "%s %d file(s), press Ctrl+C to stop\n", cyan("Watching"), len(files))
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := f.paint(color.Bold)
	fmt.Fprintf(f.writer, "%s %s\n", bold("rede"), version)
}
