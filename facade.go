// Package stopwake brings up the STM32F3 RTC wakeup timer and keeps the
// chip in Stop mode between periodic wakeups.
package stopwake

import (
	"github.com/ystepanoff/stopwake/controller"
	"github.com/ystepanoff/stopwake/periph"
)

// The peripheral sets come from build-tag specific files:
// - constructors_stm32.go - for embedded platforms (//go:build tinygo || baremetal)
// - constructors_host.go - for development/testing (//go:build !tinygo && !baremetal)
var issuer = newIssuer()

type (
	Config      = controller.Config
	Calendar    = controller.Calendar
	Controller  = controller.Controller
	SleepMode   = controller.SleepMode
	WakeupClock = controller.WakeupClock
	Device      = periph.Device
	Core        = periph.Core
)

var (
	ErrAlreadyTaken      = periph.ErrAlreadyTaken
	ErrNotReady          = controller.ErrNotReady
	ErrStandbyLosesState = controller.ErrStandbyLosesState
	ErrInvalidConfig     = controller.ErrInvalidConfig
)

const (
	ModeRun     = controller.ModeRun
	ModeStop    = controller.ModeStop
	ModeStandby = controller.ModeStandby
)

// DefaultConfig is controller.DefaultConfig.
func DefaultConfig() Config { return controller.DefaultConfig() }

// Take returns the process's device and core peripheral sets. Only the
// first call succeeds.
func Take() (*Device, *Core, error) {
	return issuer.Take()
}

// New takes the peripherals and builds a controller for cfg.
func New(cfg Config, work func()) (*Controller, error) {
	dev, core, err := Take()
	if err != nil {
		return nil, err
	}
	return controller.New(dev, core, cfg, work)
}

// MustNew is New for firmware main: any error halts startup.
func MustNew(cfg Config, work func()) *Controller {
	c, err := New(cfg, work)
	if err != nil {
		panic("stopwake: " + err.Error())
	}
	return c
}
