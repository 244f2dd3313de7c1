/*
thread.go thread records and their life cycle

A record is created Blocked, made Ready right away, and freed only after it
has died and the CPU has switched away from it: the free is queued on the
destruction list and carried out by the next scheduling decision.
*/

package threads

import (
	"runtime"
)

// Status is the scheduling state of a thread
type Status uint16

// thread state constants
const (
	ThreadFree    Status = 0 // arena slot is unused
	ThreadRunning Status = 1 // thread is running on the CPU
	ThreadReady   Status = 2 // thread is on the ready list
	ThreadBlocked Status = 3 // thread waits for an event
	ThreadDying   Status = 4 // thread is about to be destroyed
)

func (s Status) String() string {
	switch s {
	case ThreadFree:
		return "free"
	case ThreadRunning:
		return "running"
	case ThreadReady:
		return "ready"
	case ThreadBlocked:
		return "blocked"
	case ThreadDying:
		return "dying"
	}
	return "unknown"
}

// Thread is the record of one kernel thread
type Thread struct {
	tid    Tid32
	status Status
	name   string

	priority     Pri16 // effective priority, used by every comparison
	basePriority Pri16 // priority set at creation or by SetPriority

	donors    queue // threads donating their priority to this one
	waitingOn *Lock // lock this thread is blocked acquiring

	wakeTick int64 // meaningful while on the sleep list

	links [numLinks]qentry
	slot  Qid16

	fn      ThreadFunc
	aux     interface{}
	wake    chan struct{} // the CPU is handed over through here
	started bool

	msg      Umsg32 // message sent to this thread
	hasMsg   bool   // true if msg is valid
	recvWait bool   // blocked in Receive

	magic uint32
}

// Tid returns the thread id
func (t *Thread) Tid() Tid32 { return t.tid }

// Name returns the thread name
func (t *Thread) Name() string { return t.name }

// Status returns the scheduling state
func (t *Thread) Status() Status { return t.status }

// Priority returns the effective priority
func (t *Thread) Priority() Pri16 { return t.priority }

// BasePriority returns the priority before donation
func (t *Thread) BasePriority() Pri16 { return t.basePriority }

// WaitingOn returns the lock the thread is blocked acquiring, if any
func (t *Thread) WaitingOn() *Lock { return t.waitingOn }

func isThread(t *Thread) bool {
	return t != nil && t.magic == ThreadMagic
}

func (k *Kernel) assertPriority(p Pri16) {
	if p < PriMin || p > PriMax {
		k.panicf("priority %d out of range [%d, %d]", p, PriMin, PriMax)
	}
}

// initThread does basic initialization of t as a blocked thread named name
func (k *Kernel) initThread(t *Thread, name string, priority Pri16) {
	k.assertPriority(priority)

	if len(name) > NameLen-1 {
		name = name[:NameLen-1]
	}
	t.status = ThreadBlocked
	t.name = name
	t.priority = priority
	t.basePriority = priority
	t.donors = newQueue(k.procs, donorLink)
	t.waitingOn = nil
	t.wake = make(chan struct{}, 1)
	t.magic = ThreadMagic
}

// threadInit turns the running goroutine into the initial thread
func (k *Kernel) threadInit() {
	k.assert(k.level == IntrOff, "threadInit with interrupts on")

	k.tidLock = k.NewLock()

	t, err := k.procs.get()
	if err != OK {
		k.panicf("no record for the initial thread")
	}
	k.initThread(t, "main", PriDefault)
	t.status = ThreadRunning
	t.started = true
	k.initial = t
	k.current = t
	t.tid = k.allocateTid()
}

// threadStart creates the idle thread and starts preemptive scheduling by
// enabling interrupts.
func (k *Kernel) threadStart() {
	idleStarted := k.NewSemaphore(0)
	if _, err := k.Create("idle", PriMin, k.idleLoop, idleStarted); err != OK {
		k.panicf("cannot create idle thread: %v", err)
	}

	k.Enable()

	// wait for the idle thread to initialize k.idle
	idleStarted.Down()
}

// idleLoop is the body of the idle thread. It is put on the ready list once
// by threadStart and never again; the dispatcher returns it as a special
// case when the ready list is empty.
func (k *Kernel) idleLoop(aux interface{}) {
	idleStarted := aux.(*Semaphore)
	k.idle = k.Current()
	idleStarted.Up()

	for {
		// let someone else run
		k.Disable()
		k.Block()

		// re-enable interrupts and wait for the next one
		k.halt()
	}
}

// kernelThread is the entry trampoline of every thread but the initial one
func (k *Kernel) kernelThread(t *Thread) {
	defer k.threadExit()
	defer k.catch()

	k.Enable() // the scheduler runs with interrupts off
	t.fn(t.aux)
}

func (k *Kernel) allocateTid() Tid32 {
	k.tidLock.Acquire()
	tid := k.nextTid
	k.nextTid++
	k.tidLock.Release()
	return tid
}

// Create starts a new kernel thread named name with the given priority,
// which runs fn(aux). It returns the new thread's id, or TidError and
// ErrNoMem when the thread table is full.
//
// The new thread may be scheduled, and may even exit, before Create
// returns: when it outranks the caller, the caller yields at once.
func (k *Kernel) Create(name string, priority Pri16, fn ThreadFunc, aux interface{}) (Tid32, error) {
	k.assert(fn != nil, "thread %q created without a function", name)

	t, err := k.procs.get()
	if err != OK {
		return TidError, err
	}
	k.initThread(t, name, priority)
	t.tid = k.allocateTid()
	t.fn = fn
	t.aux = aux
	tid := t.tid

	mask := k.Disable()
	k.unblock(t)
	k.console.Debugf("create %s(%d) priority %d", t.name, tid, priority)

	if k.current.priority < t.priority {
		k.Restore(mask)
		k.Yield()
	} else {
		k.Restore(mask)
	}

	return tid, OK
}

// Current returns the running thread
func (k *Kernel) Current() *Thread {
	t := k.current

	// if either of these assertions fire, the record was overwritten,
	// typically by a stack overflow
	k.assert(isThread(t), "running thread record is corrupt")
	k.assert(t.status == ThreadRunning, "running thread %s is %s", t.name, t.status)

	return t
}

// Tid returns the running thread's id
func (k *Kernel) Tid() Tid32 {
	return k.Current().tid
}

// Name returns the running thread's name
func (k *Kernel) Name() string {
	return k.Current().name
}

// Lookup returns the live thread with the given id, nil when there is none
func (k *Kernel) Lookup(tid Tid32) *Thread {
	var found *Thread
	k.procs.each(func(t *Thread) bool {
		if t.tid == tid && isThread(t) {
			found = t
			return false
		}
		return true
	})
	return found
}

// ThreadCount returns the number of allocated thread records
func (k *Kernel) ThreadCount() int {
	return k.procs.count()
}

// Block puts the running thread to sleep. It will not be scheduled again
// until woken by Unblock. Interrupts must be off; the synchronization
// primitives are usually a better choice than calling this directly.
func (k *Kernel) Block() {
	k.assert(!k.inExternal, "thread_block in interrupt context")
	k.assert(k.level == IntrOff, "thread_block with interrupts on")

	k.current.status = ThreadBlocked
	k.schedule()
}

// Unblock makes the blocked thread tid ready to run. It is a fatal error if
// the thread is not blocked, or if it sleeps or waits on a semaphore: only a
// thread parked with a bare Block may be passed here.
//
// Unblock does not preempt the running thread: a caller that disabled
// interrupts may unblock a thread and update other data atomically.
func (k *Kernel) Unblock(tid Tid32) {
	t := k.Lookup(tid)
	if t == nil {
		k.panicf("unblock of unknown thread %d", tid)
	}
	k.unblock(t)
}

func (k *Kernel) unblock(t *Thread) {
	k.assert(isThread(t), "unblock of a corrupt thread record")

	mask := k.Disable()
	if t.status != ThreadBlocked {
		k.panicf("unblock of thread %s(%d) which is %s", t.name, t.tid, t.status)
	}
	if t.links[elemLink].onq {
		// asleep or waiting on a semaphore, its owner wakes it
		k.panicf("unblock of thread %s(%d) which waits on a sleep or semaphore list", t.name, t.tid)
	}
	k.readyList.insert(t, higherPriority)
	t.status = ThreadReady
	k.Restore(mask)
}

// Yield gives up the CPU. The running thread is not put to sleep and may be
// scheduled again immediately.
func (k *Kernel) Yield() {
	k.assert(!k.inExternal, "thread_yield in interrupt context")

	curr := k.Current()
	mask := k.Disable()
	if curr != k.idle {
		k.readyList.insert(curr, higherPriority)
	}
	k.doSchedule(ThreadReady)
	k.Restore(mask)
}

// Exit deschedules the running thread and destroys it. It never returns;
// the deferred calls of the thread body run before the switch.
func (k *Kernel) Exit() {
	k.assert(!k.inExternal, "thread_exit in interrupt context")
	runtime.Goexit()
}

// threadExit runs last on the way out of a thread body
func (k *Kernel) threadExit() {
	if k.off.Load() {
		return
	}
	k.Disable()
	k.doSchedule(ThreadDying)
}

// SetPriority sets the running thread's base priority. The thread yields if
// it no longer has the highest priority.
func (k *Kernel) SetPriority(p Pri16) {
	k.assertPriority(p)

	mask := k.Disable()
	t := k.Current()
	t.basePriority = p
	t.priority = maxPriority(t)
	k.Restore(mask)

	k.checkPreempt()
}

// GetPriority returns the running thread's effective priority
func (k *Kernel) GetPriority() Pri16 {
	return k.Current().priority
}

// maxPriority returns the priority t is entitled to: its base priority or
// the highest priority donated to it.
func maxPriority(t *Thread) Pri16 {
	p := t.basePriority
	for d := t.donors.First(); d != nil; d = t.donors.Next(d) {
		if d.priority > p {
			p = d.priority
		}
	}
	return p
}

// setEffective changes t's effective priority and keeps the ready list
// ordered if t is on it. Interrupts must be off.
func (k *Kernel) setEffective(t *Thread, p Pri16) {
	t.priority = p
	if t.status == ThreadReady {
		k.readyList.getItem(t)
		k.readyList.insert(t, higherPriority)
	}
}
