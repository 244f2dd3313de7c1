/*
init.go kernel construction, boot and power off

A Kernel is one simulated CPU. Run turns a fresh goroutine into the initial
thread, starts the idle thread and runs main on the CPU. The machine powers
off when main returns, when the initial thread exits, or on a kernel panic.
*/

package threads

import (
	"fmt"
	"math"

	"go.uber.org/atomic"
)

// Stats collects tick and switch counters
type Stats struct {
	IdleTicks   int64 // timer ticks spent idle
	KernelTicks int64 // timer ticks in kernel threads
	Switches    int64 // context switches
}

// Kernel is the scheduler state of one CPU. Apart from RaiseInterrupt and
// Ticks, its methods must only be called from threads running on it.
type Kernel struct {
	cfg     Config
	console *console

	procs          *arena
	readyList      queue // threads ready to run, by priority
	sleepList      queue // threads sleeping until a tick, by wake tick
	destructionReq queue // dead threads whose records are freed at the next schedule

	current *Thread
	initial *Thread
	idle    *Thread

	tidLock *Lock
	nextTid Tid32

	// interrupt state of the CPU
	level         IntrLevel
	inExternal    bool
	yieldOnReturn bool
	handlers      [NumExtVectors]*intrHandler
	pending       atomic.Uint32
	haltCh        chan struct{}

	ticks       atomic.Int64
	minimumTick int64
	threadTicks uint

	def Defer

	ports portTable

	stats Stats

	booted   atomic.Bool
	off      atomic.Bool
	poweroff chan struct{}
	panicErr error
}

// New builds a kernel from cfg. Zero fields of cfg take their defaults.
func New(cfg Config) (*Kernel, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxThreads < 2 || cfg.MaxThreads > math.MaxInt16 {
		return nil, fmt.Errorf("threads: MaxThreads %d out of range [2, %d]", cfg.MaxThreads, math.MaxInt16)
	}

	k := &Kernel{
		cfg:         cfg,
		console:     newConsole(cfg.Output, cfg.Debug),
		procs:       newArena(cfg.MaxThreads),
		level:       IntrOff,
		haltCh:      make(chan struct{}, 1),
		minimumTick: math.MaxInt64,
		nextTid:     1,
		poweroff:    make(chan struct{}),
	}
	k.readyList = newQueue(k.procs, elemLink)
	k.sleepList = newQueue(k.procs, elemLink)
	k.destructionReq = newQueue(k.procs, elemLink)
	k.ptInit(int32(MaxMsgs))

	if err := k.RegisterExt(TimerVector, k.Tick, "8254 Timer"); err != OK {
		return nil, err
	}
	return k, nil
}

// Run boots the kernel, runs main as the initial thread and blocks until
// the machine powers off. It returns a *PanicError when the kernel stopped
// on a contract violation. A kernel runs once.
func (k *Kernel) Run(main func()) error {
	if !k.booted.CompareAndSwap(false, true) {
		return ErrSYSERR
	}
	go k.bootThread(main)
	<-k.poweroff
	return k.panicErr
}

func (k *Kernel) bootThread(main func()) {
	defer k.PowerOff()
	defer k.catch()

	k.threadInit()
	k.threadStart()
	main()
}

// PowerOff stops the machine. Threads that are still alive are abandoned
// where they stand.
func (k *Kernel) PowerOff() {
	k.powerOff(nil)
}

func (k *Kernel) powerOff(err error) {
	if k.off.Swap(true) {
		return
	}
	k.panicErr = err
	k.console.Debugf("power off")
	close(k.poweroff)
}

// Done is closed once the machine is powered off
func (k *Kernel) Done() <-chan struct{} {
	return k.poweroff
}

// Stats returns the tick and switch counters. Safe once Run has returned.
func (k *Kernel) Stats() Stats {
	return k.stats
}

// PrintStats prints thread statistics to the console
func (k *Kernel) PrintStats() {
	k.console.Statsf("Thread: %d idle ticks, %d kernel ticks, %d user ticks\n",
		k.stats.IdleTicks, k.stats.KernelTicks, 0)
	k.console.Statsf("Scheduler: %d context switches\n", k.stats.Switches)
}

// panicf reports a fatal contract violation, powers the machine off and
// halts the calling thread for good.
func (k *Kernel) panicf(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	name := ""
	if k.current != nil {
		name = k.current.name
	}
	k.console.Panicf("Kernel PANIC in thread %q: %s\n", name, msg)
	k.powerOff(&PanicError{Thread: name, Msg: msg})
	select {}
}

func (k *Kernel) assert(cond bool, format string, a ...interface{}) {
	if !cond {
		k.panicf("assertion failed: "+format, a...)
	}
}

// catch turns a Go panic escaping a thread into a kernel panic
func (k *Kernel) catch() {
	if r := recover(); r != nil {
		k.panicf("%v", r)
	}
}
