package controller

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/ystepanoff/stopwake/driver/sim"
	"github.com/ystepanoff/stopwake/periph"
)

func TestBootDefaultConfig(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logger = log.New(&out, "", 0)

	b, c := bootController(t, sim.Options{}, cfg, nil)
	dev, core := c.dev, c.core

	if !periph.HasBits(dev.RTC.CR, periph.RTC_CR_WUTE) {
		t.Error("countdown not started")
	}
	if !periph.HasBits(dev.RTC.CR, periph.RTC_CR_WUTIE) {
		t.Error("wakeup interrupt not enabled")
	}
	if got := periph.Field(dev.RTC.CR, periph.RTC_CR_WUCKSEL_Msk, periph.RTC_CR_WUCKSEL_Pos); got != uint32(WakeupClockSPRE) {
		t.Errorf("WUCKSEL = %#b, want %#b", got, WakeupClockSPRE)
	}
	if got := dev.RTC.WUTR.Get(); got != DefaultWakeupReload {
		t.Errorf("WUTR = %d, want %d", got, DefaultWakeupReload)
	}
	if !periph.HasBits(dev.EXTI.IMR1, periph.EXTI_IMR1_MR20) || !periph.HasBits(dev.EXTI.RTSR1, periph.EXTI_RTSR1_TR20) {
		t.Error("EXTI line 20 not armed for rising edges")
	}
	if !periph.HasBits(dev.PWR.CR, periph.PWR_CR_LPDS) {
		t.Error("low-power regulator not selected")
	}
	if !periph.HasBits(core.SCB.SCR, periph.SCB_SCR_SLEEPDEEP) {
		t.Error("SLEEPDEEP not set")
	}
	if !periph.HasBits(dev.DBGMCU.CR, periph.DBGMCU_CR_DBG_STOP) || !periph.HasBits(dev.DBGMCU.APB1FZ, periph.DBGMCU_APB1FZ_DBG_RTC_STOP) {
		t.Error("debug freeze not configured")
	}
	if got, err := c.Calendar(); err != nil || got != cfg.Calendar {
		t.Errorf("Calendar() = %v, %v, want %v", got, err, cfg.Calendar)
	}
	if b.Now() != 0 {
		t.Errorf("time moved during bring-up: %v", b.Now())
	}

	for _, s := range Steps() {
		if !strings.Contains(out.String(), "[Boot] "+s.Name+" done") {
			t.Errorf("log missing step %q:\n%s", s.Name, out.String())
		}
	}
}

func TestDefaultNeverSelectsStandby(t *testing.T) {
	b, c := bootController(t, sim.Options{}, testConfig(), nil)

	if periph.HasBits(c.dev.PWR.CR, periph.PWR_CR_PDDS) {
		t.Fatal("default configuration set PDDS")
	}
	runFor(b, c.Cycle(), 30*time.Second)

	if b.Suspends(sim.PowerStandby) != 0 {
		t.Errorf("entered Standby %d times", b.Suspends(sim.PowerStandby))
	}
	if b.VolatileLost() {
		t.Error("volatile state lost")
	}
}

func TestStandbyRejected(t *testing.T) {
	_, dev, core := newBoard(t, sim.Options{})
	cfg := testConfig()
	cfg.Sleep.Mode = ModeStandby

	if _, err := New(dev, core, cfg, nil); !errors.Is(err, ErrStandbyLosesState) {
		t.Errorf("New() error = %v, want %v", err, ErrStandbyLosesState)
	}
	if err := ConfigureSleep(dev, core.SCB, cfg.Sleep); !errors.Is(err, ErrStandbyLosesState) {
		t.Errorf("ConfigureSleep() error = %v, want %v", err, ErrStandbyLosesState)
	}
	if periph.HasBits(core.SCB.SCR, periph.SCB_SCR_SLEEPDEEP) {
		t.Error("SLEEPDEEP set for a rejected mode")
	}
}

func TestRunModeLightSleep(t *testing.T) {
	cfg := testConfig()
	cfg.Sleep = SleepConfig{Mode: ModeRun}
	b, c := bootController(t, sim.Options{}, cfg, nil)

	runFor(b, c.Cycle(), 20*time.Second)

	if c.Cycle().Wakes() != 2 {
		t.Errorf("Wakes() = %d, want 2", c.Cycle().Wakes())
	}
	if b.Suspends(sim.PowerStop) != 0 || b.Suspends(sim.PowerSleep) == 0 {
		t.Errorf("suspends: sleep %d, stop %d", b.Suspends(sim.PowerSleep), b.Suspends(sim.PowerStop))
	}
	if periph.HasBits(c.dev.DBGMCU.CR, periph.DBGMCU_CR_DBG_STOP) {
		t.Error("debug freeze configured without FreezeOnDebug")
	}
}

func TestStopClearsStaleStandbyFlag(t *testing.T) {
	b, dev, core := newBoard(t, sim.Options{})
	if err := Bootstrap(dev, Spin{}); err != nil {
		t.Fatal(err)
	}

	// Go through one Standby wake to leave SBF set.
	periph.SetBits(dev.PWR.CR, periph.PWR_CR_PDDS)
	periph.SetBits(core.SCB.SCR, periph.SCB_SCR_SLEEPDEEP)
	UnlockRTC(dev.RTC)
	if err := ProgramWakeup(dev.RTC, 0, WakeupClockSPRE, Spin{}); err != nil {
		t.Fatal(err)
	}
	if err := RouteWakeupInterrupt(dev.EXTI, core.NVIC, func() {}); err != nil {
		t.Fatal(err)
	}
	StartWakeup(dev.RTC)
	b.SetHorizon(5 * time.Second)
	core.CPU.WaitForInterrupt()

	if !b.VolatileLost() {
		t.Fatal("Standby wake did not reset the core domain")
	}
	if !periph.HasBits(dev.PWR.CSR, periph.PWR_CSR_SBF) {
		t.Fatal("SBF not set after Standby")
	}
	if periph.HasBits(dev.PWR.CR, periph.PWR_CR_DBP) {
		t.Error("DBP survived the Standby wake")
	}

	if err := Bootstrap(dev, Spin{}); err != nil {
		t.Fatal(err)
	}
	if err := ConfigureSleep(dev, core.SCB, SleepConfig{Mode: ModeStop}); err != nil {
		t.Fatal(err)
	}
	if periph.HasBits(dev.PWR.CSR, periph.PWR_CSR_SBF) {
		t.Error("ConfigureSleep left SBF set")
	}
	if periph.HasBits(dev.PWR.CR, periph.PWR_CR_PDDS|periph.PWR_CR_LPDS) {
		t.Errorf("PWR_CR = %#x, want PDDS and LPDS clear", dev.PWR.CR.Get())
	}
}

func TestNewValidation(t *testing.T) {
	_, dev, core := newBoard(t, sim.Options{})

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"async too wide", func(c *Config) { c.Prescaler.Async = 0x80 }, ErrInvalidConfig},
		{"sync too wide", func(c *Config) { c.Prescaler.Sync = 0x8000 }, ErrInvalidConfig},
		{"reserved wakeup clock", func(c *Config) { c.WakeupClock = 0b101 }, ErrInvalidConfig},
		{"unknown sleep mode", func(c *Config) { c.Sleep.Mode = 9 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(dev, core, cfg, nil); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := New(nil, core, testConfig(), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(nil device) error = %v, want %v", err, ErrInvalidConfig)
	}
}

func TestBootReportsFailingStep(t *testing.T) {
	_, dev, core := newBoard(t, sim.Options{InitAckReads: sim.NeverReady})
	c, err := New(dev, core, testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	err = c.Boot()
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("Boot() error = %v, want %v", err, ErrNotReady)
	}
	if !strings.HasPrefix(err.Error(), StepCalendar+":") {
		t.Errorf("Boot() error %q does not name the calendar step", err)
	}
	if periph.HasBits(dev.RTC.CR, periph.RTC_CR_WUTE) {
		t.Error("countdown started after a failed step")
	}
}

func TestWakeupPeriod(t *testing.T) {
	pre := Prescaler{Async: DefaultPrescalerAsync, Sync: DefaultPrescalerSync}

	tests := []struct {
		name   string
		lsiHz  uint32
		clock  WakeupClock
		reload uint16
		want   time.Duration
	}{
		{"exact 1 Hz ck_spre", exactLSI, WakeupClockSPRE, 9, 10 * time.Second},
		{"nominal LSI", LSINominalHz, WakeupClockSPRE, 9, 10016 * time.Millisecond},
		{"reload zero", exactLSI, WakeupClockSPRE, 0, time.Second},
		{"rtc/16", 40000, WakeupClockRTCDiv16, 2499, time.Second},
		{"rtc/2", 40000, WakeupClockRTCDiv2, 19, time.Millisecond},
		{"extended", exactLSI, WakeupClockSPREExtended, 0, 65537 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WakeupPeriod(tt.lsiHz, pre, tt.clock, tt.reload)
			if d := got - tt.want; d < -time.Microsecond || d > time.Microsecond {
				t.Errorf("WakeupPeriod() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := WakeupPeriod(0, pre, WakeupClockSPRE, 9); got != 0 {
		t.Errorf("WakeupPeriod(0 Hz) = %v, want 0", got)
	}

	lo, hi := PeriodRange(pre, WakeupClockSPRE, 9)
	if lo >= 10*time.Second || hi <= 10*time.Second {
		t.Errorf("PeriodRange() = [%v, %v], want it to straddle 10s", lo, hi)
	}
}

func TestWakeupClockMatchesSimulation(t *testing.T) {
	cfg := testConfig()
	cfg.WakeupClock = WakeupClockRTCDiv16
	cfg.WakeupReload = 2503
	b, c := bootController(t, sim.Options{}, cfg, nil)

	runFor(b, c.Cycle(), 5*time.Second)

	want := WakeupPeriod(exactLSI, cfg.Prescaler, cfg.WakeupClock, cfg.WakeupReload)
	events := b.WakeEvents()
	if len(events) < 2 {
		t.Fatalf("%d wake events in 5 s", len(events))
	}
	for i := 1; i < len(events); i++ {
		if got := events[i] - events[i-1]; got != want {
			t.Errorf("interval %d = %v, want %v", i, got, want)
		}
	}
}
