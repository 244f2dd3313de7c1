/*
resched.go is about thread rescheduling

The CPU is a baton passed between goroutines: the outgoing thread hands it
to the incoming thread's wake channel and parks on its own. A thread that
has never run is started at its entry trampoline instead.
*/

package threads

const (
	// DeferStart means start deferred rescheduling
	DeferStart uint8 = 1
	// DeferStop means stop deferred rescheduling
	DeferStop uint8 = 2
)

// Defer struct collects items related to deferred rescheduling
type Defer struct {
	NDefers uint32 // number of outstanding defers
	Attempt bool   // was a preemption requested during the deferral period
}

// nextThreadToRun returns the head of the ready list, or the idle thread
// when the ready list is empty
func (k *Kernel) nextThreadToRun() *Thread {
	if k.readyList.IsEmpty() {
		return k.idle
	}
	return k.readyList.getFirst()
}

// doSchedule frees dead records, marks the running thread with status and
// switches to the next thread. Interrupts must be off.
func (k *Kernel) doSchedule(status Status) {
	k.assert(k.level == IntrOff, "schedule with interrupts on")
	k.assert(k.current.status == ThreadRunning, "schedule from thread %s which is %s", k.current.name, k.current.status)

	for !k.destructionReq.IsEmpty() {
		victim := k.destructionReq.getFirst()
		k.console.Debugf("destroy %s(%d)", victim.name, victim.tid)
		k.procs.free(victim)
	}

	k.current.status = status
	k.schedule()
}

func (k *Kernel) schedule() {
	curr := k.current
	next := k.nextThreadToRun()

	k.assert(k.level == IntrOff, "schedule with interrupts on")
	k.assert(curr.status != ThreadRunning, "schedule from running thread %s", curr.name)
	k.assert(isThread(next), "next thread record is corrupt")

	// mark it running and start a new time slice
	next.status = ThreadRunning
	k.threadTicks = 0

	if curr != next {
		// a dying thread is destroyed late, by the next schedule, so that
		// nothing frees the record under its own feet
		if curr.status == ThreadDying && curr != k.initial {
			k.destructionReq.enqueue(curr)
		}
		k.threadLaunch(curr, next)
	}
}

// threadLaunch switches the CPU from prev to next. It returns when prev is
// scheduled again, or right away when prev is dying.
func (k *Kernel) threadLaunch(prev, next *Thread) {
	k.stats.Switches++
	k.console.Debugf("switch %s(%d) -> %s(%d)", prev.name, prev.tid, next.name, next.tid)

	dying := prev.status == ThreadDying
	wake := prev.wake
	k.current = next

	if next.started {
		next.wake <- struct{}{}
	} else {
		next.started = true
		go k.kernelThread(next)
	}

	// from here on prev's record belongs to whoever runs now
	if dying {
		return
	}
	<-wake
}

// checkPreempt yields the CPU if a ready thread outranks the running one.
// In an interrupt handler the yield happens on interrupt return.
func (k *Kernel) checkPreempt() {
	mask := k.Disable()
	head := k.readyList.First()
	if head == nil || head.priority <= k.current.priority {
		k.Restore(mask)
		return
	}

	if k.def.NDefers > 0 {
		// rescheduling is deferred, remember it was asked for
		k.def.Attempt = true
		k.Restore(mask)
		return
	}

	if k.inExternal {
		k.YieldOnReturn()
		k.Restore(mask)
		return
	}

	k.Restore(mask)
	k.Yield()
}

// ReschedCntl controls whether preemption is deferred or allowed. Blocking
// calls still switch while preemption is deferred.
func (k *Kernel) ReschedCntl(d uint8) error {
	mask := k.Disable()
	defer k.Restore(mask)

	switch d {
	case DeferStart:
		if k.def.NDefers == 0 { // the first time to defer rescheduling
			k.def.Attempt = false
		}
		k.def.NDefers++
		return OK

	case DeferStop:
		if k.def.NDefers <= 0 { // something must going wrong
			return ErrSYSERR
		}
		k.def.NDefers--

		// no defer left and a preemption was asked for during the
		// deferral period
		if k.def.NDefers == 0 && k.def.Attempt {
			k.def.Attempt = false
			k.checkPreempt()
		}
		return OK
	}
	return ErrSYSERR
}
