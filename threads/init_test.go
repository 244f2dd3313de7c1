package threads

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Output:      io.Discard,
		HaltTimeout: 2 * time.Second,
	}
}

// runKernel boots a kernel built from cfg, runs main as its initial thread
// and returns what Run returned.
func runKernel(t *testing.T, cfg Config, main func(k *Kernel)) (*Kernel, error) {
	t.Helper()

	k, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- k.Run(func() { main(k) })
	}()

	select {
	case err := <-done:
		return k, err
	case <-time.After(10 * time.Second):
		t.Fatal("kernel did not power off")
	}
	return k, nil
}

// mustRun is runKernel with the test configuration, failing on a kernel panic
func mustRun(t *testing.T, main func(k *Kernel)) *Kernel {
	t.Helper()
	k, err := runKernel(t, testConfig(), main)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return k
}

// mustPanic runs main and expects a kernel panic whose message contains msg
func mustPanic(t *testing.T, msg string, main func(k *Kernel)) *PanicError {
	t.Helper()
	_, err := runKernel(t, testConfig(), main)

	var perr *PanicError
	if !errors.As(err, &perr) {
		t.Fatalf("Run returned %v, want a kernel panic", err)
	}
	if !strings.Contains(perr.Msg, msg) {
		t.Fatalf("panic %q does not mention %q", perr.Msg, msg)
	}
	return perr
}

// tick raises one timer interrupt and takes it at once
func tick(k *Kernel) {
	k.RaiseInterrupt(TimerVector)
	k.Poll()
}

// eventLog records what threads did. Only threads on the CPU append to it.
type eventLog struct {
	events []string
}

func (l *eventLog) add(e string) {
	l.events = append(l.events, e)
}

func (l *eventLog) expect(t *testing.T, want ...string) {
	t.Helper()
	if !reflect.DeepEqual(l.events, want) {
		t.Errorf("events = %q, want %q", l.events, want)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	for _, n := range []int{1, 1 << 20} {
		if _, err := New(Config{MaxThreads: n}); err == nil {
			t.Errorf("New(MaxThreads=%d) succeeded", n)
		}
	}
}

func TestBootAndPowerOff(t *testing.T) {
	var (
		name     string
		priority Pri16
		count    int
		level    IntrLevel
	)
	k := mustRun(t, func(k *Kernel) {
		name = k.Name()
		priority = k.GetPriority()
		count = k.ThreadCount()
		level = k.Level()
	})

	if name != "main" || priority != PriDefault {
		t.Errorf("initial thread %s at %d, want main at %d", name, priority, PriDefault)
	}
	if count != 2 {
		t.Errorf("ThreadCount() = %d, want 2 (main and idle)", count)
	}
	if level != IntrOn {
		t.Errorf("main runs with interrupts %v", level)
	}
	select {
	case <-k.Done():
	default:
		t.Error("Done not closed after Run returned")
	}
	if err := k.Run(func() {}); err == nil {
		t.Error("second Run succeeded")
	}
}

func TestMainExitPowersOff(t *testing.T) {
	var log eventLog
	mustRun(t, func(k *Kernel) {
		defer log.add("deferred")
		k.Exit()
		log.add("after exit")
	})
	log.expect(t, "deferred")
}

func TestGoPanicBecomesKernelPanic(t *testing.T) {
	perr := mustPanic(t, "boom", func(k *Kernel) {
		k.Create("bomb", PriDefault+1, func(interface{}) {
			panic("boom")
		}, nil)
	})
	if perr.Thread != "bomb" {
		t.Errorf("panic in thread %q, want bomb", perr.Thread)
	}
	if !strings.Contains(perr.Error(), "Kernel PANIC") {
		t.Errorf("Error() = %q", perr.Error())
	}
}

func TestPanicPrintedOnConsole(t *testing.T) {
	var out strings.Builder
	cfg := testConfig()
	cfg.Output = &out

	_, err := runKernel(t, cfg, func(k *Kernel) {
		k.Unblock(k.Tid())
	})
	if err == nil {
		t.Fatal("no kernel panic")
	}
	if !strings.Contains(out.String(), "Kernel PANIC in thread \"main\"") {
		t.Errorf("console output %q", out.String())
	}
}

func TestDebugTrace(t *testing.T) {
	var out strings.Builder
	cfg := testConfig()
	cfg.Output = &out
	cfg.Debug = true

	_, err := runKernel(t, cfg, func(k *Kernel) {
		k.Create("traced", PriDefault+1, func(interface{}) {}, nil)
		k.PrintStats()
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--- create traced", "--- switch main", "context switches"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("trace lacks %q:\n%s", want, out.String())
		}
	}
}
