package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/ystepanoff/stopwake/controller"
	"github.com/ystepanoff/stopwake/driver/sim"
	"github.com/ystepanoff/stopwake/internal/profile"
)

// hostPollAttempts bounds ready polls when the profile leaves them
// unbounded, so a never-ready bit fails the run instead of hanging it.
const hostPollAttempts = 10000

var (
	runOpts = struct {
		verbose bool
		dump    bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Boot and run the wake cycle",
		Long:  "Boot the controller on a simulated board built from the profile and run the wake cycle for the profile duration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			out := newConsole()
			logw := io.Discard
			if runOpts.verbose {
				logw = out
			}
			r, err := simulate(p, logw)
			if err != nil {
				return err
			}
			r.print(out)
			if runOpts.dump {
				fmt.Fprint(out, r.registers)
			}
			if !r.healthy() {
				return fmt.Errorf("wake cycle unhealthy")
			}
			return nil
		},
	}
)

func init() {
	runCmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false, "print bring-up log")
	runCmd.Flags().BoolVar(&runOpts.dump, "dump", false, "print the register file at the end of the run")
}

type report struct {
	name     string
	duration time.Duration

	wakes        uint32
	interrupts   uint32
	dispatches   int
	dirty        int
	storming     bool
	volatileLost bool

	// Interval statistics in seconds, first interval measured from boot.
	mean, stddev float64
	expected     time.Duration
	min, max     time.Duration

	calendar  controller.Calendar
	registers string
}

func (r *report) healthy() bool {
	return !r.storming && !r.volatileLost && r.wakes > 0 && r.dirty == 0
}

// simulate boots the controller on a fresh board and steps the wake
// cycle until the profile duration is reached.
func simulate(p *profile.Profile, logw io.Writer) (*report, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	cfg.Logger = log.New(logw, "", 0)
	if cfg.Poller == nil {
		cfg.Poller = controller.Bounded{Attempts: hostPollAttempts}
	}

	b := sim.NewBoard(sim.Options{
		LSIHz:           p.Sim.LSIHz,
		LSIStartupReads: p.Sim.LSIStartupReads,
		InitAckReads:    p.Sim.InitAckReads,
		Horizon:         p.Duration(),
	})
	dev, core, err := b.Issuer().Take()
	if err != nil {
		return nil, err
	}

	c, err := controller.New(dev, core, cfg, nil)
	if err != nil {
		return nil, err
	}
	if err := c.Boot(); err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	cycle := c.Cycle()
	for !b.Done() {
		cycle.Step()
	}

	cal, err := c.Calendar()
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}

	lsiHz := uint32(p.Sim.LSIHz)
	if lsiHz == 0 {
		lsiHz = controller.LSINominalHz
	}
	r := &report{
		name:         p.Name,
		duration:     b.Now(),
		wakes:        cycle.Wakes(),
		interrupts:   cycle.Interrupts(),
		dispatches:   b.Dispatches(),
		dirty:        b.DirtySuspends(),
		storming:     b.Storming(),
		volatileLost: b.VolatileLost(),
		expected:     controller.WakeupPeriod(lsiHz, cfg.Prescaler, cfg.WakeupClock, cfg.WakeupReload),
		calendar:     cal,
		registers:    b.String(),
	}
	r.min, r.max = controller.PeriodRange(cfg.Prescaler, cfg.WakeupClock, cfg.WakeupReload)

	events := b.WakeEvents()
	if len(events) > 0 {
		intervals := make([]float64, len(events))
		var prev time.Duration
		for i, e := range events {
			intervals[i] = (e - prev).Seconds()
			prev = e
		}
		r.mean, r.stddev = stat.MeanStdDev(intervals, nil)
	}
	return r, nil
}

func (r *report) print(out console) {
	fmt.Fprintf(out, "%s %s over %v\n", out.paint(bold, "profile"), r.name, r.duration)
	fmt.Fprintf(out, "  calendar   %s\n", r.calendar)
	fmt.Fprintf(out, "  wakes      %d\n", r.wakes)
	fmt.Fprintf(out, "  interrupts %d (%d dispatches)\n", r.interrupts, r.dispatches)
	fmt.Fprintf(out, "  interval   %.4fs mean, %.4fs stddev, %v expected\n", r.mean, r.stddev, r.expected)
	fmt.Fprintf(out, "  LSI range  %v to %v\n", r.min, r.max)
	switch {
	case r.storming:
		fmt.Fprintln(out, out.status(false, "  interrupt storm: pending bit never cleared"))
	case r.volatileLost:
		fmt.Fprintln(out, out.status(false, "  woke from Standby: state lost"))
	case r.dirty > 0:
		fmt.Fprintln(out, out.status(false, fmt.Sprintf("  %d suspends with a wake flag still set", r.dirty)))
	case r.wakes == 0:
		fmt.Fprintln(out, out.status(false, "  no wake events"))
	default:
		fmt.Fprintln(out, out.status(true, "  ok"))
	}
}
