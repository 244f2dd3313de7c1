/* intutils.go interrupt management

Interrupts are raised by devices from their own goroutines into a pending
mask and delivered on the CPU whenever interrupts are on and no handler is
running: when a thread re-enables them, when it polls, and when the idle
thread halts.

Disable/Restore bracket every scheduler critical section:

	mask := k.Disable()
	defer k.Restore(mask)
*/

package threads

import (
	"fmt"
	"math/bits"
	"time"
)

const (
	// FirstExtVector is the first external interrupt vector
	FirstExtVector uint8 = 0x20
	// NumExtVectors is the number of external interrupt vectors
	NumExtVectors = 16
)

type intrHandler struct {
	fn    func()
	name  string
	count int64
}

// Level returns the current interrupt level
func (k *Kernel) Level() IntrLevel {
	return k.level
}

// Disable disables interrupts and returns the previous level
func (k *Kernel) Disable() IntrLevel {
	old := k.level
	k.level = IntrOff
	return old
}

// Enable enables interrupts, delivers those pending and returns the
// previous level
func (k *Kernel) Enable() IntrLevel {
	k.assert(!k.inExternal, "interrupts enabled inside an interrupt handler")

	old := k.level
	k.level = IntrOn
	k.deliverPending()
	return old
}

// Restore restores (rolls back) the interrupt level to im
func (k *Kernel) Restore(im IntrLevel) {
	if k.off.Load() {
		return
	}
	if im == IntrOn {
		k.Enable()
	} else {
		k.Disable()
	}
}

// Poll delivers pending interrupts if interrupts are on. Thread bodies that
// compute for long without entering the kernel call it to stay preemptible.
func (k *Kernel) Poll() {
	if k.level == IntrOn {
		k.deliverPending()
	}
}

// IntrContext reports whether an external interrupt is being handled
func (k *Kernel) IntrContext() bool {
	return k.inExternal
}

// YieldOnReturn asks the handler of the external interrupt being processed
// to yield to a new thread just before returning from the interrupt.
func (k *Kernel) YieldOnReturn() {
	k.assert(k.inExternal, "yield on return outside an interrupt handler")
	k.yieldOnReturn = true
}

// RegisterExt registers fn to handle the external interrupt vec, named name
// for debugging. Handlers run with interrupts off and must not sleep.
func (k *Kernel) RegisterExt(vec uint8, fn func(), name string) error {
	if vec < FirstExtVector || int(vec-FirstExtVector) >= NumExtVectors || fn == nil {
		return fmt.Errorf("%w: bad external interrupt vector %#x", ErrSYSERR, vec)
	}
	i := vec - FirstExtVector
	if k.handlers[i] != nil {
		return fmt.Errorf("%w: vector %#x already handled by %s", ErrSYSERR, vec, k.handlers[i].name)
	}
	k.handlers[i] = &intrHandler{fn: fn, name: name}
	return OK
}

// RaiseInterrupt marks the external interrupt vec pending and wakes a
// halted CPU. Safe to call from any goroutine.
func (k *Kernel) RaiseInterrupt(vec uint8) {
	if vec < FirstExtVector || int(vec-FirstExtVector) >= NumExtVectors {
		return
	}
	bit := uint32(1) << (vec - FirstExtVector)
	for {
		old := k.pending.Load()
		if k.pending.CompareAndSwap(old, old|bit) {
			break
		}
	}
	select {
	case k.haltCh <- struct{}{}:
	default:
	}
}

// IntrCount returns how many times the handler of vec has run
func (k *Kernel) IntrCount(vec uint8) int64 {
	if vec < FirstExtVector || int(vec-FirstExtVector) >= NumExtVectors {
		return 0
	}
	if h := k.handlers[vec-FirstExtVector]; h != nil {
		return h.count
	}
	return 0
}

func (k *Kernel) deliverPending() {
	for k.level == IntrOn && !k.inExternal && !k.off.Load() {
		p := k.pending.Load()
		if p == 0 {
			return
		}
		i := bits.TrailingZeros32(p)
		if !k.pending.CompareAndSwap(p, p&^(uint32(1)<<i)) {
			continue
		}
		k.intrHandler(FirstExtVector + uint8(i))
	}
}

// intrHandler runs the handler of an external interrupt the way the CPU
// would: with interrupts off, then yields if asked to and returns with
// interrupts on.
func (k *Kernel) intrHandler(vec uint8) {
	h := k.handlers[vec-FirstExtVector]

	k.level = IntrOff
	k.inExternal = true
	k.yieldOnReturn = false

	if h != nil {
		h.count++
		h.fn()
	} else {
		k.console.Debugf("unexpected interrupt %#x", vec)
	}

	k.inExternal = false
	if k.yieldOnReturn {
		k.Yield()
	}
	k.level = IntrOn
}

// halt enables interrupts and waits for the next one. Only the idle thread
// halts.
func (k *Kernel) halt() {
	k.level = IntrOn
	if k.pending.Load() == 0 {
		var timeout <-chan time.Time
		if k.cfg.HaltTimeout > 0 {
			timer := time.NewTimer(k.cfg.HaltTimeout)
			defer timer.Stop()
			timeout = timer.C
		}

		select {
		case <-k.haltCh:
		case <-timeout:
			k.panicf("CPU halted for %v with no interrupt source", k.cfg.HaltTimeout)
		}
	}
	k.deliverPending()
}
