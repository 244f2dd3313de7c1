/*
lock.go locks with priority donation

A lock is a semaphore with an initial value of 1 plus an owner. Unlike a
semaphore, the thread that releases a lock must be the one that acquired
it, and locks are not recursive.

When a thread blocks on a held lock it donates its priority to the holder,
and on along the chain of holders: the holder may itself be blocked on
another lock. Lock acquisition order must not cycle; the kernel does not
check for it.
*/

package threads

import "fmt"

// Lock is a non-recursive lock with priority donation
type Lock struct {
	k      *Kernel
	holder *Thread // thread holding the lock, for debugging
	sema   *Semaphore
}

// NewLock returns a free lock
func (k *Kernel) NewLock() *Lock {
	return &Lock{
		k:    k,
		sema: k.NewSemaphore(1),
	}
}

// Holder returns the thread holding the lock, nil when free
func (l *Lock) Holder() *Thread {
	return l.holder
}

func (l *Lock) String() string {
	if l.holder == nil {
		return "lock(free)"
	}
	return fmt.Sprintf("lock(held by %s)", l.holder.name)
}

// Acquire acquires the lock, sleeping until it becomes available if
// necessary. The lock must not already be held by the running thread.
// It may sleep, so it must not be called in an interrupt handler.
func (l *Lock) Acquire() {
	k := l.k
	k.assert(!k.inExternal, "lock_acquire in interrupt context")
	if l.HeldByCurrent() {
		k.panicf("lock acquired twice by %s", k.current.name)
	}

	mask := k.Disable()
	defer k.Restore(mask)

	curr := k.current
	if l.holder != nil {
		// remember what we wait for, so later donations can follow us
		curr.waitingOn = l

		// donate only when we outrank the holder
		if l.holder.priority < curr.priority {
			l.holder.donors.pushFront(curr)
			k.donate(curr, l.holder)
		}
	}

	l.sema.Down()
	l.holder = curr
	curr.waitingOn = nil
}

// donate raises holder, and then every holder further down the chain of
// locks holder is waiting on, to donor's priority. The walk stops at the
// first holder that already runs at least that high.
func (k *Kernel) donate(donor, holder *Thread) {
	p := donor.priority
	k.setEffective(holder, p)

	t := holder
	for depth := 1; depth < MaxDonationDepth && t.waitingOn != nil; depth++ {
		next := t.waitingOn.holder
		if next == nil || next.priority >= p {
			break
		}
		k.setEffective(next, p)
		t = next
	}
}

// TryAcquire tries to acquire the lock without sleeping and reports whether
// it did. No priority is donated on failure.
func (l *Lock) TryAcquire() bool {
	k := l.k
	if l.HeldByCurrent() {
		k.panicf("lock acquired twice by %s", k.current.name)
	}

	mask := k.Disable()
	defer k.Restore(mask)

	ok := l.sema.TryDown()
	if ok {
		l.holder = k.current
	}
	return ok
}

// Release releases the lock, which must be held by the running thread.
// Donations made by threads waiting for this lock are withdrawn.
func (l *Lock) Release() {
	k := l.k
	if !l.HeldByCurrent() {
		k.panicf("lock released by %s which does not hold it", k.current.name)
	}

	mask := k.Disable()

	holder := l.holder
	holder.donors.forEach(func(d *Thread) {
		if d.waitingOn == l {
			d.waitingOn = nil
			holder.donors.getItem(d)
		}
	})
	holder.priority = maxPriority(holder)
	l.holder = nil

	// wake the next holder before interrupts come back on, a tick in
	// between would run lower threads ahead of it
	l.sema.Up()
	k.Restore(mask)
}

// HeldByCurrent reports whether the running thread holds the lock. Testing
// whether some other thread holds a lock would be racy.
func (l *Lock) HeldByCurrent() bool {
	return l.holder != nil && l.holder == l.k.current
}
