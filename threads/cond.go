/*
cond.go condition variables

A condition variable lets one piece of code signal a condition and
cooperating code receive the signal and act upon it. Each is associated
with one lock; one lock may serve several condition variables.

The monitor is "Mesa" style, not "Hoare" style: sending and receiving a
signal are not one atomic operation, so a woken waiter must re-check its
condition after Wait returns.
*/

package threads

// condWaiter is one waiting thread: a fresh semaphore plus the waiter's
// priority at the moment it started waiting. The priority is not updated
// afterwards.
type condWaiter struct {
	sema     *Semaphore
	priority Pri16
}

// Cond is a condition variable
type Cond struct {
	k       *Kernel
	waiters []*condWaiter
}

// NewCond returns a condition variable with no waiters
func (k *Kernel) NewCond() *Cond {
	return &Cond{k: k}
}

// Waiters returns the number of threads waiting on the condition
func (c *Cond) Waiters() int {
	return len(c.waiters)
}

// Wait atomically releases lock and waits for the condition to be
// signaled, then re-acquires lock before returning. lock must be held.
// It may sleep, so it must not be called in an interrupt handler.
func (c *Cond) Wait(lock *Lock) {
	k := c.k
	k.assert(!k.inExternal, "cond_wait in interrupt context")
	k.assert(lock.HeldByCurrent(), "cond_wait without holding the lock")

	w := &condWaiter{
		sema:     k.NewSemaphore(0),
		priority: k.current.priority,
	}

	// insert before the first waiter with a lower priority
	i := 0
	for i < len(c.waiters) && c.waiters[i].priority >= w.priority {
		i++
	}
	c.waiters = append(c.waiters, nil)
	copy(c.waiters[i+1:], c.waiters[i:])
	c.waiters[i] = w

	lock.Release()
	w.sema.Down()
	lock.Acquire()
}

// Signal wakes the first waiter, if any. lock must be held.
func (c *Cond) Signal(lock *Lock) {
	k := c.k
	k.assert(!k.inExternal, "cond_signal in interrupt context")
	k.assert(lock.HeldByCurrent(), "cond_signal without holding the lock")

	if len(c.waiters) == 0 {
		return
	}
	w := c.waiters[0]
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	w.sema.Up()
}

// Broadcast wakes all waiters. lock must be held. The running thread is
// preempted at most once, after every waiter has been woken.
func (c *Cond) Broadcast(lock *Lock) {
	k := c.k
	k.assert(lock.HeldByCurrent(), "cond_broadcast without holding the lock")

	k.ReschedCntl(DeferStart)
	for len(c.waiters) > 0 {
		c.Signal(lock)
	}
	k.ReschedCntl(DeferStop)
}
