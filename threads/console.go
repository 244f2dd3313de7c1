/*
console.go kernel console

Everything the kernel prints goes through here. The scheduler trace is only
written when the kernel was booted with Config.Debug.
*/

package threads

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

type console struct {
	w     io.Writer
	debug bool

	trace *color.Color
	stats *color.Color
	alert *color.Color
}

func newConsole(w io.Writer, debug bool) *console {
	return &console{
		w:     w,
		debug: debug,
		trace: color.New(color.Faint),
		stats: color.New(color.FgCyan),
		alert: color.New(color.FgHiRed, color.Bold),
	}
}

// Printf writes to the console as is
func (c *console) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.w, format, a...)
}

// Debugf writes a scheduler trace line
func (c *console) Debugf(format string, a ...interface{}) {
	if !c.debug {
		return
	}
	c.trace.Fprintf(c.w, "--- "+format+"\n", a...)
}

func (c *console) Statsf(format string, a ...interface{}) {
	c.stats.Fprintf(c.w, format, a...)
}

func (c *console) Panicf(format string, a ...interface{}) {
	c.alert.Fprintf(c.w, format, a...)
}

// Printf prints to the kernel console. Thread bodies use it the way kernel
// code uses printf.
func (k *Kernel) Printf(format string, a ...interface{}) {
	k.console.Printf(format, a...)
}
