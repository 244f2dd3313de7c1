// Command pintos boots the kernel on a simulated CPU and runs the actions
// given on its command line.
//
//	pintos [OPTION...] [ACTION...]
//
// The only action is "run SCENARIO"; actions run in the order given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/fatih/color"

	"github.com/omokgosu/Pintos-09-11/devices"
	"github.com/omokgosu/Pintos-09-11/threads"
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "\nCommand line syntax: %s [OPTION...] [ACTION...]\n", os.Args[0])
	fmt.Fprintf(out, "Options must precede actions.\n")
	fmt.Fprintf(out, "Actions are executed in the order specified.\n")
	fmt.Fprintf(out, "\nAvailable actions:\n")
	fmt.Fprintf(out, "  run SCENARIO       Run SCENARIO.\n")
	fmt.Fprintf(out, "\nScenarios:\n")
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintf(out, "\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	quit := flag.Bool("q", false, "power off after actions are done")
	debug := flag.Bool("debug", false, "trace the scheduler on the console")
	freq := flag.Int("freq", devices.TimerFreq, "timer interrupts per second")
	slice := flag.Uint("slice", threads.TimeSlice, "timer ticks per time slice")
	nthreads := flag.Int("threads", threads.NPROC, "size of the thread table")
	flag.Usage = usage
	flag.Parse()

	actions, err := parseActions(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v (use -h for help)\n", err)
		os.Exit(2)
	}

	cfg := threads.DefaultConfig()
	cfg.Debug = *debug
	cfg.TimeSlice = *slice
	cfg.MaxThreads = *nthreads

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := boot(ctx, cfg, *freq, actions, *quit); err != nil {
		var perr *threads.PanicError
		if !errors.As(err, &perr) {
			color.New(color.FgHiRed).Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// parseActions splits the non-option arguments into the scenarios to run
func parseActions(args []string) ([]string, error) {
	var run []string
	for len(args) > 0 {
		if args[0] != "run" {
			return nil, fmt.Errorf("unknown action `%s'", args[0])
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("action `run' requires 1 argument(s)")
		}
		if _, ok := scenarios[args[1]]; !ok {
			return nil, fmt.Errorf("no scenario named \"%s\"", args[1])
		}
		run = append(run, args[1])
		args = args[2:]
	}
	return run, nil
}

// boot builds the machine, runs the actions on it and waits for it to power
// off. Without quit the machine keeps running until ctx is cancelled.
func boot(ctx context.Context, cfg threads.Config, freq int, actions []string, quit bool) error {
	k, err := threads.New(cfg)
	if err != nil {
		return err
	}
	timer, err := devices.NewTimer(k, threads.TimerVector, freq)
	if err != nil {
		return err
	}

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go timer.Run(tctx)

	return k.Run(func() {
		k.Printf("Boot complete.\n")

		for _, name := range actions {
			k.Printf("Executing '%s':\n", name)
			runScenario(k, timer, name)
			k.Printf("Execution of '%s' complete.\n", name)
		}

		if !quit {
			// keep the machine up until interrupted
			for ctx.Err() == nil {
				k.Sleep(int64(timer.Freq()))
			}
		}
		k.PrintStats()
	})
}
