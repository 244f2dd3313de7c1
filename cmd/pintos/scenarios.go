package main

import (
	"fmt"
	"strings"

	"github.com/omokgosu/Pintos-09-11/devices"
	"github.com/omokgosu/Pintos-09-11/threads"
)

// tester is handed to every scenario
type tester struct {
	k     *threads.Kernel
	timer *devices.Timer
	name  string
}

// msg prints a line of scenario output
func (t *tester) msg(format string, a ...interface{}) {
	t.k.Printf("(%s) %s\n", t.name, fmt.Sprintf(format, a...))
}

// fail reports a failed check. The panic becomes a kernel panic.
func (t *tester) fail(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	t.k.Printf("(%s) FAIL: %s\n", t.name, msg)
	panic("test failed")
}

var scenarios = map[string]func(t *tester){
	"alarm-single":             func(t *tester) { alarmSleep(t, 5, 1) },
	"alarm-multiple":           func(t *tester) { alarmSleep(t, 5, 7) },
	"alarm-priority":           alarmPriority,
	"alarm-zero":               alarmZero,
	"alarm-negative":           alarmNegative,
	"priority-change":          priorityChange,
	"priority-preempt":         priorityPreempt,
	"priority-fifo":            priorityFifo,
	"priority-sema":            prioritySema,
	"priority-condvar":         priorityCondvar,
	"priority-donate-one":      donateOne,
	"priority-donate-multiple": donateMultiple,
	"priority-donate-nest":     donateNest,
	"priority-donate-chain":    donateChain,
	"priority-donate-lower":    donateLower,
	"sema-self-test":           func(t *tester) { t.k.SemaSelfTest() },
	"ipc-ports":                ipcPorts,
}

func runScenario(k *threads.Kernel, timer *devices.Timer, name string) {
	t := &tester{k: k, timer: timer, name: name}
	t.msg("begin")
	scenarios[name](t)
	t.msg("end")
}

/* alarm */

type sleepRecord struct {
	id       int
	duration int
}

// alarmSleep makes nthreads threads sleep iterations times each. Thread i
// sleeps (i+1)*10 ticks per iteration. The wake ups, ordered by time, must
// have non-decreasing iteration*duration products.
func alarmSleep(t *tester, nthreads, iterations int) {
	k := t.k
	t.msg("Creating %d threads to sleep %d times each.", nthreads, iterations)
	t.msg("Thread 0 sleeps 10 ticks each time,")
	t.msg("thread 1 sleeps 20 ticks each time, and so on.")
	t.msg("If successful, product of iteration count and")
	t.msg("sleep duration will appear in nondescending order.")

	start := k.Ticks() + 100
	outputLock := k.NewLock()
	var output []sleepRecord

	for i := 0; i < nthreads; i++ {
		id, duration := i, (i+1)*10
		k.Create(fmt.Sprintf("thread %d", i), threads.PriDefault, func(interface{}) {
			for j := 1; j <= iterations; j++ {
				k.SleepUntil(start + int64(j*duration))

				outputLock.Acquire()
				output = append(output, sleepRecord{id: id, duration: duration})
				outputLock.Release()
			}
		}, nil)
	}

	// wait long enough for all the threads to finish
	k.Sleep(100 + int64(nthreads*iterations*10) + 100)

	outputLock.Acquire()
	defer outputLock.Release()

	iters := make([]int, nthreads)
	product := 0
	for _, r := range output {
		iters[r.id]++
		newProduct := iters[r.id] * r.duration
		t.msg("thread %d: duration=%d, iteration=%d, product=%d", r.id, r.duration, iters[r.id], newProduct)
		if newProduct < product {
			t.fail("thread %d woke up out of order (%d > %d)!", r.id, product, newProduct)
		}
		product = newProduct
	}
	for i, n := range iters {
		if n != iterations {
			t.fail("thread %d woke up %d times instead of %d", i, n, iterations)
		}
	}
}

// alarmPriority checks that threads waking at the same tick run in
// priority order
func alarmPriority(t *tester) {
	k := t.k
	wakeTime := k.Ticks() + int64(t.timer.Freq())
	waitSema := k.NewSemaphore(0)

	for i := 0; i < 10; i++ {
		priority := threads.PriDefault - threads.Pri16((i+5)%10) - 1
		k.Create(fmt.Sprintf("priority %d", priority), priority, func(interface{}) {
			k.SleepUntil(wakeTime)
			t.msg("Thread %s woke up.", k.Name())
			waitSema.Up()
		}, nil)
	}

	k.SetPriority(threads.PriMin)
	for i := 0; i < 10; i++ {
		waitSema.Down()
	}
}

func alarmZero(t *tester) {
	t.k.Sleep(0)
	t.msg("PASS")
}

func alarmNegative(t *tester) {
	t.k.Sleep(-100)
	t.msg("PASS")
}

/* priority scheduling */

func priorityChange(t *tester) {
	k := t.k
	t.msg("Creating a high-priority thread 2.")
	k.Create("thread 2", threads.PriDefault+1, func(interface{}) {
		t.msg("Thread 2 now lowering priority.")
		k.SetPriority(threads.PriDefault - 1)
		t.msg("Thread 2 exiting.")
	}, nil)
	t.msg("Thread 2 should have just lowered its priority.")
	k.SetPriority(threads.PriDefault - 2)
	t.msg("Thread 2 should have just exited.")
}

func priorityPreempt(t *tester) {
	k := t.k
	k.Create("high-priority", threads.PriDefault+1, func(interface{}) {
		for i := 0; i < 5; i++ {
			t.msg("Thread %s iteration %d", k.Name(), i)
			k.Yield()
		}
		t.msg("Thread %s done!", k.Name())
	}, nil)
	t.msg("The high-priority thread should have already completed.")
}

// priorityFifo checks that threads of equal priority take turns in the
// same order every round
func priorityFifo(t *tester) {
	const nthreads, iterations = 16, 16
	k := t.k

	t.msg("%d threads will iterate %d times in the same order each time.", nthreads, iterations)
	t.msg("If the order varies then there is a bug.")

	k.SetPriority(threads.PriDefault + 2)
	lock := k.NewLock()
	var output []int
	for i := 0; i < nthreads; i++ {
		id := i
		k.Create(fmt.Sprintf("%2d", i), threads.PriDefault+1, func(interface{}) {
			for j := 0; j < iterations; j++ {
				lock.Acquire()
				output = append(output, id)
				lock.Release()
				k.Yield()
			}
		}, nil)
	}
	k.SetPriority(threads.PriDefault)

	if len(output) != nthreads*iterations {
		t.fail("%d threads ran %d times, want %d", nthreads, len(output), nthreads*iterations)
	}
	first := output[:nthreads]
	for i := 0; i < iterations; i++ {
		row := output[i*nthreads : (i+1)*nthreads]
		var b strings.Builder
		for j, id := range row {
			fmt.Fprintf(&b, " %d", id)
			if id != first[j] {
				t.fail("iteration %d ran thread %d where %d ran first", i, id, first[j])
			}
		}
		t.msg("iteration:%s", b.String())
	}
}

func prioritySema(t *tester) {
	k := t.k
	sema := k.NewSemaphore(0)
	k.SetPriority(threads.PriMin)
	for i := 0; i < 10; i++ {
		priority := threads.PriDefault - threads.Pri16((i+3)%10) - 1
		k.Create(fmt.Sprintf("priority %d", priority), priority, func(interface{}) {
			sema.Down()
			t.msg("Thread %s woke up.", k.Name())
		}, nil)
	}

	for i := 0; i < 10; i++ {
		sema.Up()
		t.msg("Back in main thread.")
	}
}

func priorityCondvar(t *tester) {
	k := t.k
	lock := k.NewLock()
	cond := k.NewCond()

	k.SetPriority(threads.PriMin)
	for i := 0; i < 10; i++ {
		priority := threads.PriDefault - threads.Pri16((i+7)%10) - 1
		k.Create(fmt.Sprintf("priority %d", priority), priority, func(interface{}) {
			t.msg("Thread %s starting.", k.Name())
			lock.Acquire()
			cond.Wait(lock)
			t.msg("Thread %s woke up.", k.Name())
			lock.Release()
		}, nil)
	}

	for i := 0; i < 10; i++ {
		lock.Acquire()
		t.msg("Signaling...")
		cond.Signal(lock)
		lock.Release()
	}
}

/* priority donation */

func acquireAndReport(t *tester, lock *threads.Lock) threads.ThreadFunc {
	return func(interface{}) {
		k := t.k
		lock.Acquire()
		t.msg("%s: got the lock", k.Name())
		lock.Release()
		t.msg("%s: done", k.Name())
	}
}

func donateOne(t *tester) {
	k := t.k
	lock := k.NewLock()
	lock.Acquire()

	k.Create("acquire1", threads.PriDefault+1, acquireAndReport(t, lock), nil)
	t.msg("This thread should have priority %d.  Actual priority: %d.", threads.PriDefault+1, k.GetPriority())
	k.Create("acquire2", threads.PriDefault+2, acquireAndReport(t, lock), nil)
	t.msg("This thread should have priority %d.  Actual priority: %d.", threads.PriDefault+2, k.GetPriority())

	lock.Release()
	t.msg("acquire2, acquire1 must already have finished, in that order.")
	t.msg("This should be the last line before finishing this test.")
}

func donateMultiple(t *tester) {
	k := t.k
	a, b := k.NewLock(), k.NewLock()
	a.Acquire()
	b.Acquire()

	body := func(name string, lock *threads.Lock) threads.ThreadFunc {
		return func(interface{}) {
			lock.Acquire()
			t.msg("Thread %s acquired lock %s.", name, name)
			lock.Release()
			t.msg("Thread %s finished.", name)
		}
	}

	k.Create("a", threads.PriDefault+1, body("a", a), nil)
	t.msg("Main thread should have priority %d.  Actual priority: %d.", threads.PriDefault+1, k.GetPriority())
	k.Create("b", threads.PriDefault+2, body("b", b), nil)
	t.msg("Main thread should have priority %d.  Actual priority: %d.", threads.PriDefault+2, k.GetPriority())

	b.Release()
	t.msg("Thread b should have just finished.")
	t.msg("Main thread should have priority %d.  Actual priority: %d.", threads.PriDefault+1, k.GetPriority())

	a.Release()
	t.msg("Thread a should have just finished.")
	t.msg("Main thread should have priority %d.  Actual priority: %d.", threads.PriDefault, k.GetPriority())
}

func donateNest(t *tester) {
	k := t.k
	a, b := k.NewLock(), k.NewLock()
	a.Acquire()

	k.Create("medium", threads.PriDefault+1, func(interface{}) {
		b.Acquire()
		a.Acquire()

		t.msg("Medium thread should have priority %d.  Actual priority: %d.", threads.PriDefault+2, k.GetPriority())
		t.msg("Medium thread got the lock.")

		a.Release()
		k.Yield()

		b.Release()
		k.Yield()

		t.msg("High thread should have just finished.")
		t.msg("Middle thread finished.")
	}, nil)
	k.Yield()
	t.msg("Low thread should have priority %d.  Actual priority: %d.", threads.PriDefault+1, k.GetPriority())

	k.Create("high", threads.PriDefault+2, func(interface{}) {
		b.Acquire()
		t.msg("High thread got the lock.")
		b.Release()
		t.msg("High thread finished.")
	}, nil)
	k.Yield()
	t.msg("Low thread should have priority %d.  Actual priority: %d.", threads.PriDefault+2, k.GetPriority())

	a.Release()
	k.Yield()
	t.msg("Medium thread should just have finished.")
	t.msg("Low thread should have priority %d.  Actual priority: %d.", threads.PriDefault, k.GetPriority())
}

// donateChain builds a chain of seven threads, each blocked on a lock held
// by the one created before it, and checks that the highest priority
// reaches the start of the chain.
func donateChain(t *tester) {
	const depth = 8
	k := t.k

	k.SetPriority(threads.PriMin)

	locks := make([]*threads.Lock, depth-1)
	for i := range locks {
		locks[i] = k.NewLock()
	}
	locks[0].Acquire()
	t.msg("%s got lock.", k.Name())

	for i := 1; i < depth; i++ {
		priority := threads.PriMin + threads.Pri16(i*3)

		var first *threads.Lock
		if i < depth-1 {
			first = locks[i]
		}
		second := locks[i-1]

		k.Create(fmt.Sprintf("thread %d", i), priority, func(interface{}) {
			if first != nil {
				first.Acquire()
			}
			second.Acquire()
			t.msg("%s got lock", k.Name())

			second.Release()
			t.msg("%s should have priority %d. Actual priority: %d", k.Name(), (depth-1)*3, k.GetPriority())

			if first != nil {
				first.Release()
			}
			t.msg("%s finishing with priority %d.", k.Name(), k.GetPriority())
		}, nil)
		t.msg("%s should have priority %d.  Actual priority: %d.", k.Name(), priority, k.GetPriority())

		k.Create(fmt.Sprintf("interloper %d", i), priority-1, func(interface{}) {
			t.msg("%s finished.", k.Name())
		}, nil)
	}

	locks[0].Release()
	t.msg("%s finishing with priority %d.", k.Name(), k.GetPriority())
}

func donateLower(t *tester) {
	k := t.k
	lock := k.NewLock()
	lock.Acquire()

	k.Create("acquire", threads.PriDefault+10, acquireAndReport(t, lock), nil)
	t.msg("Main thread should have priority %d.  Actual priority: %d.", threads.PriDefault+10, k.GetPriority())

	t.msg("Lowering base priority...")
	k.SetPriority(threads.PriDefault - 10)
	t.msg("Main thread should have priority %d.  Actual priority: %d.", threads.PriDefault+10, k.GetPriority())

	lock.Release()
	t.msg("acquire must already have finished.")
	t.msg("Main thread should have priority %d.  Actual priority: %d.", threads.PriDefault-10, k.GetPriority())
}

/* messages and ports */

// ipcPorts passes messages between a producer and the main thread through a
// port that holds two messages, then exchanges a direct message.
func ipcPorts(t *tester) {
	const nmsgs = 5
	k := t.k

	port, err := k.PtCreate(2)
	if err != nil {
		t.fail("ptcreate: %v", err)
	}

	mainTid := k.Tid()
	k.Create("producer", threads.PriDefault+1, func(interface{}) {
		for i := 0; i < nmsgs; i++ {
			if err := k.PtSend(port, threads.Umsg32(i*i)); err != nil {
				t.fail("ptsend: %v", err)
			}
			t.msg("producer sent %d", i*i)
		}
		if err := k.Send(mainTid, nmsgs); err != nil {
			t.fail("send: %v", err)
		}
	}, nil)

	for i := 0; i < nmsgs; i++ {
		msg, err := k.PtRecv(port)
		if err != nil {
			t.fail("ptrecv: %v", err)
		}
		t.msg("main received %d", msg)
	}
	t.msg("producer sent %d messages", k.Receive())
}
