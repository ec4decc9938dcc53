package controller

import (
	"fmt"
	"log"
)

// Internal low-speed oscillator, STM32F303xC datasheet table 41. The LSI
// is uncalibrated, so every period derived from it is approximate.
const (
	LSINominalHz = 40000
	LSIMinHz     = 30000
	LSIMaxHz     = 50000
)

const (
	// DefaultPrescalerAsync is the PREDIV_A reset value (RM0316 27.6.5).
	DefaultPrescalerAsync = 127
	// DefaultPrescalerSync divides a nominal 40 kHz LSI to ck_spre:
	// 40000 / ((127+1) * (312+1)) = 0.9984 Hz.
	DefaultPrescalerSync = 312
	// DefaultWakeupReload gives (9+1) ck_spre ticks between wakeups.
	DefaultWakeupReload = 9
)

// Time is a 24-hour time of day.
type Time struct {
	Hour   uint8
	Minute uint8
	Second uint8
}

// Date is a calendar date. Year counts from 2000 and must fit two BCD digits.
type Date struct {
	Year  uint8
	Month uint8
	Day   uint8
}

type Calendar struct {
	Date Date
	Time Time
}

func (c Calendar) String() string {
	return fmt.Sprintf("20%02d-%02d-%02d %02d:%02d:%02d",
		c.Date.Year, c.Date.Month, c.Date.Day, c.Time.Hour, c.Time.Minute, c.Time.Second)
}

// Prescaler holds the RTC_PRER dividers. ck_spre = RTCCLK / ((Async+1) * (Sync+1)).
type Prescaler struct {
	Async uint8
	Sync  uint16
}

// Divisor is the number of RTCCLK cycles per ck_spre tick.
func (p Prescaler) Divisor() uint32 {
	return (uint32(p.Async) + 1) * (uint32(p.Sync) + 1)
}

// WakeupClock is the RTC_CR.WUCKSEL encoding.
type WakeupClock uint8

const (
	WakeupClockRTCDiv16 WakeupClock = 0b000
	WakeupClockRTCDiv8  WakeupClock = 0b001
	WakeupClockRTCDiv4  WakeupClock = 0b010
	WakeupClockRTCDiv2  WakeupClock = 0b011
	// WakeupClockSPRE counts ck_spre, nominally 1 Hz.
	WakeupClockSPRE WakeupClock = 0b100
	// WakeupClockSPREExtended counts ck_spre with 2^16 added to the reload.
	WakeupClockSPREExtended WakeupClock = 0b110
)

func (w WakeupClock) valid() bool {
	switch w {
	case WakeupClockRTCDiv16, WakeupClockRTCDiv8, WakeupClockRTCDiv4, WakeupClockRTCDiv2,
		WakeupClockSPRE, WakeupClockSPREExtended:
		return true
	}
	return false
}

// SleepMode selects what the suspend instruction enters.
type SleepMode uint8

const (
	// ModeRun keeps SLEEPDEEP clear, so suspend is a light Sleep.
	ModeRun SleepMode = iota
	// ModeStop halts clocks and keeps SRAM and registers.
	ModeStop
	// ModeStandby powers down the core domain. Waking is a system reset.
	ModeStandby
)

func (m SleepMode) String() string {
	switch m {
	case ModeRun:
		return "run"
	case ModeStop:
		return "stop"
	case ModeStandby:
		return "standby"
	}
	return fmt.Sprintf("SleepMode(%d)", uint8(m))
}

type SleepConfig struct {
	Mode SleepMode
	// LowPowerRegulator puts the voltage regulator in low-power mode during
	// Stop: lower draw, slightly longer wake latency.
	LowPowerRegulator bool
	// FreezeOnDebug keeps the debug connection alive in Stop and freezes the
	// RTC while the core is halted by a debugger.
	FreezeOnDebug bool
}

type Config struct {
	Calendar     Calendar
	Prescaler    Prescaler
	WakeupReload uint16
	WakeupClock  WakeupClock
	Sleep        SleepConfig

	// Poller waits on ready bits. Nil means Spin.
	Poller Poller
	// Logger receives bring-up milestones. Nil means log.Default().
	Logger *log.Logger
}

// DefaultConfig returns the Discovery board profile: 22:39:10 on
// 2020-09-03, a ~10 s wake period from the LSI, Stop with the low-power
// regulator.
func DefaultConfig() Config {
	return Config{
		Calendar: Calendar{
			Date: Date{Year: 20, Month: 9, Day: 3},
			Time: Time{Hour: 22, Minute: 39, Second: 10},
		},
		Prescaler:    Prescaler{Async: DefaultPrescalerAsync, Sync: DefaultPrescalerSync},
		WakeupReload: DefaultWakeupReload,
		WakeupClock:  WakeupClockSPRE,
		Sleep: SleepConfig{
			Mode:              ModeStop,
			LowPowerRegulator: true,
			FreezeOnDebug:     true,
		},
	}
}

// Validate checks the settings that would leave the device unable to keep
// its periodic wake contract. Calendar field ranges are not checked.
func (c Config) Validate() error {
	if c.Sleep.Mode == ModeStandby {
		return ErrStandbyLosesState
	}
	if c.Sleep.Mode > ModeStandby {
		return fmt.Errorf("%w: sleep mode %d", ErrInvalidConfig, c.Sleep.Mode)
	}
	if c.Prescaler.Async > 0x7F {
		return fmt.Errorf("%w: async prescaler %d exceeds 7 bits", ErrInvalidConfig, c.Prescaler.Async)
	}
	if c.Prescaler.Sync > 0x7FFF {
		return fmt.Errorf("%w: sync prescaler %d exceeds 15 bits", ErrInvalidConfig, c.Prescaler.Sync)
	}
	if !c.WakeupClock.valid() {
		return fmt.Errorf("%w: wakeup clock selector %#b", ErrInvalidConfig, uint8(c.WakeupClock))
	}
	return nil
}

func (c Config) poller() Poller {
	if c.Poller == nil {
		return Spin{}
	}
	return c.Poller
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}
