package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger writes leveled, color-prefixed messages. Info and Debug output is
// gated behind the corresponding flags; warnings and errors always print.
type Logger struct {
	Verbose bool
	Debug   bool

	// Out overrides the destination for info/debug output. Defaults to
	// stdout; the embeddable facade points it at a caller-provided stream.
	Out io.Writer
}

func (l Logger) stdout() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stdout
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose {
		fmt.Fprintf(l.stdout(), color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.stdout(), color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, color.RedString("[error] ")+msg+"\n", args...)
}
