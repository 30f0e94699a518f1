package msg

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// all diagnostics go to stderr; stdout is reserved for the generated build file
var (
	out     io.Writer = os.Stderr
	verbose bool
	mu      sync.Mutex
)

// SetOutput redirects diagnostics, mostly useful for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Output returns the current diagnostic writer
func Output() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

func logf(prefix, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(out, prefix)
	fmt.Fprint(out, ": ")
	fmt.Fprintf(out, format, a...)
	fmt.Fprint(out, "\n")
}

func Error(format string, a ...any) {
	logf(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	logf(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	logf(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	logf(color.HiGreenString("info"), format, a...)
}

// Trace is only printed in verbose mode
func Trace(format string, a ...any) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if !v {
		return
	}
	logf(color.HiBlackString("trace"), format, a...)
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			if _, err := w.W.Write([]byte(w.Indent)); err != nil {
				return n, err
			}
			w.didIndent = true
		}
		if _, err := w.W.Write([]byte{c}); err != nil { // FIXME-perf: buffer this
			return n, err
		}
		n++
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return n, nil
}
