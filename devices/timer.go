/* timer.go 8254 programmable interval timer

The timer raises its interrupt vector TimerFreq times per second from its
own goroutine. The kernel delivers the interrupt on the CPU the next time
interrupts are on.
*/

package devices

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

const (
	// TimerFreqMin is the lowest frequency the 8254 can be programmed for
	TimerFreqMin = 19
	// TimerFreqMax is the highest frequency worth programming
	TimerFreqMax = 1000
	// TimerFreq is the default number of timer interrupts per second
	TimerFreq = 100
)

// Interrupter is the interrupt controller a device raises its vector on
type Interrupter interface {
	RaiseInterrupt(vec uint8)
}

// Timer is a periodic interrupt source
type Timer struct {
	intr Interrupter
	vec  uint8
	freq int

	count atomic.Int64
}

// NewTimer programs a timer raising vec on intr freq times per second
func NewTimer(intr Interrupter, vec uint8, freq int) (*Timer, error) {
	if intr == nil {
		return nil, fmt.Errorf("devices: timer without interrupt controller")
	}
	if freq < TimerFreqMin || freq > TimerFreqMax {
		return nil, fmt.Errorf("devices: timer frequency %d out of range [%d, %d]", freq, TimerFreqMin, TimerFreqMax)
	}
	return &Timer{intr: intr, vec: vec, freq: freq}, nil
}

// Freq returns the number of interrupts per second
func (t *Timer) Freq() int {
	return t.freq
}

// Period returns the time between two interrupts
func (t *Timer) Period() time.Duration {
	return time.Second / time.Duration(t.freq)
}

// Run raises the timer interrupt every period until ctx is cancelled
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.count.Inc()
			t.intr.RaiseInterrupt(t.vec)
		}
	}
}

// Count returns the number of interrupts raised so far
func (t *Timer) Count() int64 {
	return t.count.Load()
}

// TicksToDuration converts a number of timer ticks to wall time
func (t *Timer) TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * t.Period()
}

// DurationToTicks converts wall time to timer ticks, rounding down
func (t *Timer) DurationToTicks(d time.Duration) int64 {
	return int64(d / t.Period())
}
