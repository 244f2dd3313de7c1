package threads

import (
	"fmt"
	"strings"
	"testing"
)

func TestSemaSelfTest(t *testing.T) {
	var out strings.Builder
	cfg := testConfig()
	cfg.Output = &out

	if _, err := runKernel(t, cfg, func(k *Kernel) { k.SemaSelfTest() }); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Testing semaphores...done.") {
		t.Errorf("output %q", out.String())
	}
}

func TestSemaBalance(t *testing.T) {
	mustRun(t, func(k *Kernel) {
		s := k.NewSemaphore(2)
		s.Down()
		s.Down()
		if s.Value() != 0 {
			t.Errorf("value %d after two downs", s.Value())
		}
		s.Up()
		s.Up()
		s.Up()
		if s.Value() != 3 || s.Waiters() != 0 {
			t.Errorf("%v after three ups", s)
		}
	})
}

func TestSemaTryDown(t *testing.T) {
	mustRun(t, func(k *Kernel) {
		s := k.NewSemaphore(1)
		if !s.TryDown() {
			t.Error("TryDown on 1 failed")
		}
		if s.TryDown() {
			t.Error("TryDown on 0 succeeded")
		}
		if s.Value() != 0 {
			t.Errorf("value %d", s.Value())
		}
	})
}

func TestSemaWakesHighestPriority(t *testing.T) {
	var log eventLog
	mustRun(t, func(k *Kernel) {
		s := k.NewSemaphore(0)
		k.SetPriority(PriMin)
		for _, p := range []Pri16{10, 20, 15} {
			k.Create(fmt.Sprintf("p%d", p), p, func(interface{}) {
				s.Down()
				log.add(k.Name())
			}, nil)
		}
		if s.Waiters() != 3 {
			t.Errorf("%d waiters, want 3", s.Waiters())
		}
		for i := 0; i < 3; i++ {
			s.Up()
			log.add("main")
		}
	})
	log.expect(t, "p20", "main", "p15", "main", "p10", "main")
}

// A waiter raised by donation while asleep must be woken first.
func TestSemaUpResortsWaiters(t *testing.T) {
	var log eventLog
	mustRun(t, func(k *Kernel) {
		s := k.NewSemaphore(0)
		x := k.NewLock()
		k.SetPriority(PriMin)

		k.Create("L", 10, func(interface{}) {
			x.Acquire()
			s.Down()
			log.add("L")
			x.Release()
		}, nil)
		k.Create("M", 12, func(interface{}) {
			s.Down()
			log.add("M")
		}, nil)
		k.Create("H", 20, func(interface{}) {
			x.Acquire()
			log.add("H")
			x.Release()
		}, nil)

		s.Up()
		s.Up()
	})
	log.expect(t, "L", "H", "M")
}

func TestSemaUpFromInterrupt(t *testing.T) {
	var log eventLog
	mustRun(t, func(k *Kernel) {
		s := k.NewSemaphore(0)
		if err := k.RegisterExt(0x21, s.Up, "test device"); err != nil {
			t.Fatal(err)
		}

		k.Create("waiter", PriDefault+1, func(interface{}) {
			s.Down()
			log.add("waiter")
		}, nil)

		k.RaiseInterrupt(0x21)
		k.Poll()
		log.add("main")

		if n := k.IntrCount(0x21); n != 1 {
			t.Errorf("IntrCount = %d, want 1", n)
		}
	})
	log.expect(t, "waiter", "main")
}

func TestSemaDownInInterruptPanics(t *testing.T) {
	mustPanic(t, "sema_down in interrupt context", func(k *Kernel) {
		s := k.NewSemaphore(0)
		k.RegisterExt(0x21, s.Down, "bad device")
		k.RaiseInterrupt(0x21)
		k.Poll()
	})
}

func TestSemaDownWithInterruptsOff(t *testing.T) {
	var log eventLog
	mustRun(t, func(k *Kernel) {
		s := k.NewSemaphore(0)
		k.Create("upper", PriDefault-1, func(interface{}) {
			log.add("upper")
			s.Up()
		}, nil)

		mask := k.Disable()
		s.Down()
		if k.Level() != IntrOff {
			t.Error("Down returned with interrupts on")
		}
		k.Restore(mask)
		log.add("main")
	})
	log.expect(t, "upper", "main")
}
