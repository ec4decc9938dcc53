// Package controller sequences the RTC wakeup bring-up and runs the
// Stop-mode wake cycle.
//
// Bring-up is a fixed chain: clock and backup domain, calendar, interrupt
// route, wakeup timer, sleep mode, countdown start. Each step relies on
// the ones before it and none can be reordered.
package controller

import (
	"fmt"
	"log"

	"github.com/ystepanoff/stopwake/periph"
)

// Controller owns the peripheral sets for the lifetime of the program.
type Controller struct {
	dev   *periph.Device
	core  *periph.Core
	cfg   Config
	cycle *Cycle
	log   *log.Logger
}

// New validates cfg and prepares a controller. work runs once per wake.
func New(dev *periph.Device, core *periph.Core, cfg Config, work func()) (*Controller, error) {
	if dev == nil || core == nil {
		return nil, fmt.Errorf("%w: missing peripherals", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		dev:   dev,
		core:  core,
		cfg:   cfg,
		cycle: NewCycle(dev, core, work),
		log:   cfg.logger(),
	}, nil
}

func (c *Controller) steps() []step {
	poll := c.cfg.poller()
	run := map[string]func() error{
		StepClock: func() error {
			return Bootstrap(c.dev, poll)
		},
		StepCalendar: func() error {
			return ConfigureCalendar(c.dev.RTC, c.cfg.Calendar, c.cfg.Prescaler, poll)
		},
		StepInterrupt: func() error {
			return RouteWakeupInterrupt(c.dev.EXTI, c.core.NVIC, c.cycle.HandleInterrupt)
		},
		StepWakeup: func() error {
			return ProgramWakeup(c.dev.RTC, c.cfg.WakeupReload, c.cfg.WakeupClock, poll)
		},
		StepSleep: func() error {
			return ConfigureSleep(c.dev, c.core.SCB, c.cfg.Sleep)
		},
		StepStart: func() error {
			c.cycle.Start()
			return nil
		},
	}
	out := make([]step, len(bringUp))
	for i, info := range bringUp {
		out[i] = step{StepInfo: info, run: run[info.Name]}
	}
	return out
}

// Boot runs the bring-up sequence. On return without error the countdown
// is running and the caller should enter Run.
func (c *Controller) Boot() error {
	for _, s := range c.steps() {
		if err := s.run(); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		c.log.Printf("[Boot] %s done\r\n", s.Name)
	}
	c.log.Printf("[Boot] calendar %s, wake every %d ticks of selector %#b, sleep %s\r\n",
		c.cfg.Calendar, uint32(c.cfg.WakeupReload)+1, uint8(c.cfg.WakeupClock), c.cfg.Sleep.Mode)
	return nil
}

// Run enters the wake cycle and never returns.
func (c *Controller) Run() {
	c.cycle.Run()
}

func (c *Controller) Cycle() *Cycle { return c.cycle }

// Calendar reads the running calendar through the shadow registers.
func (c *Controller) Calendar() (Calendar, error) {
	return ReadCalendar(c.dev.RTC, c.cfg.poller())
}

func (c *Controller) Config() Config { return c.cfg }
