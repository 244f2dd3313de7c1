/*
semaphore.go counting semaphores

A semaphore is a nonnegative integer with two atomic operators:

- Down or "P": wait for the value to become positive, then decrement it.
- Up or "V": increment the value and wake one waiting thread, if any.

Waiters queue by effective priority. Up re-sorts them first, because a
waiter's priority may have been raised by donation while it slept.
*/

package threads

import "fmt"

// Semaphore is a counting semaphore
type Semaphore struct {
	k *Kernel

	// value is the count. Positive value means that Down can be called
	// value more times before any thread blocks.
	value uint

	// threads that are waiting on the semaphore
	waiters queue
}

// NewSemaphore returns a semaphore initialized to value
func (k *Kernel) NewSemaphore(value uint) *Semaphore {
	return &Semaphore{
		k:       k,
		value:   value,
		waiters: newQueue(k.procs, elemLink),
	}
}

// Value returns the current count
func (s *Semaphore) Value() uint {
	return s.value
}

// Waiters returns the number of threads blocked on the semaphore
func (s *Semaphore) Waiters() int {
	return s.waiters.Len()
}

func (s *Semaphore) String() string {
	return fmt.Sprintf("sema(value=%d, waiters=%d)", s.value, s.waiters.Len())
}

// Down waits for the value to become positive and then atomically
// decrements it. It may sleep, so it must not be called in an interrupt
// handler. It may be called with interrupts off; if it sleeps, the next
// scheduled thread will probably turn them back on.
func (s *Semaphore) Down() {
	k := s.k
	k.assert(!k.inExternal, "sema_down in interrupt context")

	mask := k.Disable()
	defer k.Restore(mask)

	for s.value == 0 {
		s.waiters.insert(k.current, higherPriority)
		k.Block()
	}
	s.value--
}

// TryDown decrements the value only if it is positive and reports whether
// it did. It does not sleep and may be called in an interrupt handler.
func (s *Semaphore) TryDown() bool {
	k := s.k
	mask := k.Disable()
	defer k.Restore(mask)

	if s.value > 0 {
		s.value--
		return true
	}
	return false
}

// Up increments the value and wakes up the highest priority waiter, if
// any. It may be called in an interrupt handler.
func (s *Semaphore) Up() {
	k := s.k
	mask := k.Disable()

	if !s.waiters.IsEmpty() {
		s.waiters.sort(higherPriority)
		k.unblock(s.waiters.getFirst())
	}
	s.value++

	k.Restore(mask)
	k.checkPreempt()
}

// SemaSelfTest makes control "ping-pong" between a pair of threads
// through two semaphores.
func (k *Kernel) SemaSelfTest() {
	sema := [2]*Semaphore{k.NewSemaphore(0), k.NewSemaphore(0)}

	k.Printf("Testing semaphores...")
	k.Create("sema-test", PriDefault, func(aux interface{}) {
		sema := aux.([2]*Semaphore)
		for i := 0; i < 10; i++ {
			sema[0].Down()
			sema[1].Up()
		}
	}, sema)

	for i := 0; i < 10; i++ {
		sema[0].Up()
		sema[1].Down()
	}
	k.Printf("done.\n")
}
