package threads

import (
	"fmt"
	"math"
	"testing"
)

func TestSleepWakesOnTime(t *testing.T) {
	woke := map[string]int64{}
	var log eventLog
	mustRun(t, func(k *Kernel) {
		for _, d := range []int64{7, 3, 5, 3} {
			d := d
			k.Create(fmt.Sprintf("s%d", d), PriDefault+1, func(interface{}) {
				k.Sleep(d)
				woke[k.Name()] = k.Ticks()
				log.add(k.Name())
			}, nil)
		}
		if mt := k.MinimumTick(); mt != 3 {
			t.Errorf("MinimumTick() = %d, want 3", mt)
		}

		for i := 0; i < 10; i++ {
			tick(k)
		}
		if mt := k.MinimumTick(); mt != math.MaxInt64 {
			t.Errorf("MinimumTick() = %d with nobody asleep", mt)
		}
	})

	log.expect(t, "s3", "s3", "s5", "s7")
	for name, want := range map[string]int64{"s3": 3, "s5": 5, "s7": 7} {
		if woke[name] != want {
			t.Errorf("%s woke at tick %d, want %d", name, woke[name], want)
		}
	}
}

func TestSleepNonPositiveReturns(t *testing.T) {
	mustRun(t, func(k *Kernel) {
		k.Sleep(0)
		k.Sleep(-100)
		k.SleepUntil(k.Ticks())
		if mt := k.MinimumTick(); mt != math.MaxInt64 {
			t.Errorf("MinimumTick() = %d", mt)
		}
	})
}

func TestSameTickWakesByPriority(t *testing.T) {
	var log eventLog
	mustRun(t, func(k *Kernel) {
		for _, p := range []Pri16{35, 40, 33} {
			k.Create(fmt.Sprintf("p%d", p), p, func(interface{}) {
				k.SleepUntil(2)
				log.add(k.Name())
			}, nil)
		}
		tick(k)
		log.add("tick 1")
		tick(k)
		log.add("tick 2")
	})
	log.expect(t, "tick 1", "p40", "p35", "p33", "tick 2")
}

func TestTimeSlicePreempts(t *testing.T) {
	var log eventLog
	mustRun(t, func(k *Kernel) {
		k.SetPriority(PriDefault + 2)
		for _, name := range []string{"A", "B"} {
			k.Create(name, PriDefault+1, func(interface{}) {
				for i := 0; i < 2*int(TimeSlice); i++ {
					log.add(k.Name())
					tick(k)
				}
			}, nil)
		}
		k.SetPriority(PriDefault)
	})

	var want []string
	for _, name := range []string{"A", "B", "A", "B"} {
		for i := uint(0); i < TimeSlice; i++ {
			want = append(want, name)
		}
	}
	log.expect(t, want...)
}

func TestTickOutsideInterruptPanics(t *testing.T) {
	mustPanic(t, "timer tick outside an interrupt handler", func(k *Kernel) {
		k.Tick()
	})
}

func TestTickStats(t *testing.T) {
	k := mustRun(t, func(k *Kernel) {
		for i := 0; i < 5; i++ {
			tick(k)
		}
		if k.Elapsed(0) != 5 {
			t.Errorf("Elapsed(0) = %d", k.Elapsed(0))
		}
	})
	s := k.Stats()
	if s.KernelTicks != 5 || s.IdleTicks != 0 {
		t.Errorf("stats %+v", s)
	}
	if k.IntrCount(TimerVector) != 5 {
		t.Errorf("IntrCount(TimerVector) = %d", k.IntrCount(TimerVector))
	}
}
