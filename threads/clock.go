/* clock.go clock manager, including timed sleep and preemption.

Sleeping threads wait on the sleep list in ascending order of the tick at
which they must wake, so the threads due at any tick are a prefix of the
list. minimumTick caches the wake tick of the head so that the timer
interrupt only scans the list when something is due.
*/

package threads

import "math"

// Tick is the timer interrupt handler, called once per timer interrupt. It
// advances the tick counter, wakes the sleeping threads that are due and
// preempts the running thread when its time slice is used up.
func (k *Kernel) Tick() {
	k.assert(k.inExternal, "timer tick outside an interrupt handler")

	now := k.ticks.Inc()
	if k.minimumTick <= now {
		k.wakeup(now)
	}
	k.threadTick()
}

// threadTick does the per-thread accounting of a timer tick
func (k *Kernel) threadTick() {
	if k.current == k.idle {
		k.stats.IdleTicks++
	} else {
		k.stats.KernelTicks++
	}

	// enforce preemption
	k.threadTicks++
	if k.threadTicks >= k.cfg.TimeSlice {
		k.YieldOnReturn()
	}
}

// wakeup moves the sleeping threads whose wake tick has come to the ready
// list. It runs in the timer interrupt.
func (k *Kernel) wakeup(now int64) {
	mask := k.Disable()
	defer k.Restore(mask)

	for t := k.sleepList.First(); t != nil && t.wakeTick <= now; t = k.sleepList.First() {
		k.sleepList.getItem(t)
		k.unblock(t)
		k.YieldOnReturn()
	}

	// the sleep list has changed, refresh the cached minimum
	k.setMinimumTick()
}

// setMinimumTick refreshes minimumTick from the head of the sleep list.
// Interrupts must be off.
func (k *Kernel) setMinimumTick() {
	k.minimumTick = math.MaxInt64
	if t := k.sleepList.First(); t != nil {
		k.minimumTick = t.wakeTick
	}
}

// MinimumTick returns the earliest wake tick on the sleep list, or
// math.MaxInt64 when nobody sleeps.
func (k *Kernel) MinimumTick() int64 {
	mask := k.Disable()
	defer k.Restore(mask)
	return k.minimumTick
}

// Ticks returns the number of timer ticks since boot. Safe to call from
// any goroutine.
func (k *Kernel) Ticks() int64 {
	return k.ticks.Load()
}

// Elapsed returns the number of timer ticks elapsed since then, a value
// once returned by Ticks.
func (k *Kernel) Elapsed(then int64) int64 {
	return k.Ticks() - then
}

// SleepUntil blocks the running thread until the timer reaches tick. It
// returns at once if tick has already passed. The idle thread never sleeps.
func (k *Kernel) SleepUntil(tick int64) {
	k.assert(!k.inExternal, "sleep in interrupt context")

	mask := k.Disable()
	defer k.Restore(mask)

	t := k.Current()
	if t == k.idle || tick <= k.ticks.Load() {
		return
	}

	t.wakeTick = tick
	k.sleepList.insert(t, earlierWake)
	k.setMinimumTick()
	k.Block()
}

// Sleep blocks the running thread for approximately ticks timer ticks
func (k *Kernel) Sleep(ticks int64) {
	if ticks <= 0 {
		return
	}
	k.SleepUntil(k.Ticks() + ticks)
}
