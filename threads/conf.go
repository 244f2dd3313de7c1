package threads

import (
	"io"
	"time"

	"github.com/fatih/color"
)

/* Configuration and Size Constants */

const (
	// NPROC is the default maximum number of threads, idle and main included
	NPROC int = 64

	// PriMin is the lowest priority
	PriMin Pri16 = 0
	// PriDefault is the default priority
	PriDefault Pri16 = 31
	// PriMax is the highest priority
	PriMax Pri16 = 63

	// TimeSlice is the number of timer ticks to give each thread
	TimeSlice uint = 4

	// MaxDonationDepth bounds the walk along a chain of lock holders
	MaxDonationDepth int = 8

	// NameLen is the maximum length of a thread name
	NameLen int = 16

	// MaxPorts is the maximum number of ports. renamed from NPORTS
	MaxPorts int = 30
	// MaxMsgs is the total messages in system. renamed from PT_MSGS
	MaxMsgs int = 100

	// TimerVector is the interrupt vector of the 8254 timer
	TimerVector uint8 = 0x20
)

// Config carries the boot time options of a kernel
type Config struct {
	// MaxThreads is the size of the thread arena
	MaxThreads int
	// TimeSlice is the number of ticks a thread runs before it is preempted
	TimeSlice uint
	// Debug turns on the scheduler trace on the console
	Debug bool
	// Output is where the console writes, color.Output when nil
	Output io.Writer
	// HaltTimeout makes an idle halt that sees no interrupt for this long a
	// kernel panic. Zero waits forever.
	HaltTimeout time.Duration
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		MaxThreads: NPROC,
		TimeSlice:  TimeSlice,
		Output:     color.Output,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxThreads <= 0 {
		c.MaxThreads = d.MaxThreads
	}
	if c.TimeSlice == 0 {
		c.TimeSlice = d.TimeSlice
	}
	if c.Output == nil {
		c.Output = d.Output
	}
	return c
}
