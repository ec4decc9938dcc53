package controller

import (
	"testing"
	"time"

	"github.com/ystepanoff/stopwake/driver/sim"
	"github.com/ystepanoff/stopwake/periph"
)

func TestFirstWakeAfterTenSeconds(t *testing.T) {
	b, c := bootController(t, sim.Options{}, testConfig(), nil)
	cycle := c.Cycle()

	runFor(b, cycle, 9*time.Second)
	if n := cycle.Interrupts(); n != 0 {
		t.Fatalf("handler ran %d times before the first period elapsed", n)
	}

	runFor(b, cycle, 10*time.Second)
	if n := cycle.Interrupts(); n != 1 {
		t.Fatalf("handler ran %d times after 10 s, want 1", n)
	}
	if periph.HasBits(c.dev.EXTI.PR1, periph.EXTI_PR1_PR20) {
		t.Error("EXTI pending flag still set after the handler")
	}
	if cycle.Wakes() != 1 {
		t.Errorf("Wakes() = %d, want 1", cycle.Wakes())
	}
}

func TestWakeCycleHundredSeconds(t *testing.T) {
	works := 0
	b, c := bootController(t, sim.Options{LSIStartupReads: 7}, testConfig(), func() { works++ })
	cycle := c.Cycle()

	suspends := 0
	b.OnSuspend(func() {
		suspends++
		if s := cycle.State(); s != Sleeping {
			t.Errorf("suspend %d entered in state %v", suspends, s)
		}
		if periph.HasBits(c.dev.RTC.ISR, periph.RTC_ISR_WUTF) {
			t.Errorf("suspend %d entered with WUTF set", suspends)
		}
		if periph.HasBits(c.dev.EXTI.PR1, periph.EXTI_PR1_PR20) {
			t.Errorf("suspend %d entered with EXTI PR20 set", suspends)
		}
	})

	runFor(b, cycle, 100*time.Second)

	if b.Storming() {
		t.Fatal("interrupt storm")
	}
	if n := cycle.Interrupts(); n != 10 {
		t.Errorf("Interrupts() = %d, want 10", n)
	}
	if n := b.Dispatches(); n != 10 {
		t.Errorf("Dispatches() = %d, want 10", n)
	}
	if works != 10 {
		t.Errorf("work ran %d times, want 10", works)
	}
	if b.DirtySuspends() != 0 {
		t.Errorf("DirtySuspends() = %d, want 0", b.DirtySuspends())
	}
	if got := b.Suspends(sim.PowerStop); got != suspends {
		t.Errorf("Stop suspends = %d of %d", got, suspends)
	}

	events := b.WakeEvents()
	if len(events) != 10 {
		t.Fatalf("%d wake events, want 10", len(events))
	}
	for i, at := range events {
		if want := time.Duration(i+1) * 10 * time.Second; at != want {
			t.Errorf("wake %d at %v, want %v", i, at, want)
		}
	}
}

func TestHandlerClearsOnlyExtiPending(t *testing.T) {
	_, dev, core := newBoard(t, sim.Options{})
	cycle := NewCycle(dev, core, nil)

	periph.SetBits(dev.EXTI.IMR1, periph.EXTI_IMR1_MR20)
	cycle.HandleInterrupt()

	if !periph.HasBits(dev.EXTI.IMR1, periph.EXTI_IMR1_MR20) {
		t.Error("handler touched the EXTI mask")
	}
	if cycle.State() != Running {
		t.Errorf("State() after handler = %v, want %v", cycle.State(), Running)
	}
	if cycle.Interrupts() != 1 {
		t.Errorf("Interrupts() = %d, want 1", cycle.Interrupts())
	}
}

func TestPendingLeftSetStorms(t *testing.T) {
	b, dev, core := newBoard(t, sim.Options{})
	poll := Bounded{Attempts: 100}
	cfg := testConfig()
	if err := Bootstrap(dev, poll); err != nil {
		t.Fatal(err)
	}
	if err := ConfigureCalendar(dev.RTC, cfg.Calendar, cfg.Prescaler, poll); err != nil {
		t.Fatal(err)
	}
	calls := 0
	// A handler that forgets the EXTI pending bit.
	if err := RouteWakeupInterrupt(dev.EXTI, core.NVIC, func() { calls++ }); err != nil {
		t.Fatal(err)
	}
	if err := ProgramWakeup(dev.RTC, cfg.WakeupReload, cfg.WakeupClock, poll); err != nil {
		t.Fatal(err)
	}
	if err := ConfigureSleep(dev, core.SCB, cfg.Sleep); err != nil {
		t.Fatal(err)
	}
	StartWakeup(dev.RTC)

	b.SetHorizon(100 * time.Second)
	core.CPU.WaitForInterrupt()

	if !b.Storming() {
		t.Fatal("no storm with the pending flag left set")
	}
	if calls < 2 {
		t.Errorf("handler ran %d times, want repeated dispatch", calls)
	}
	if b.Now() != 10*time.Second {
		t.Errorf("storm at %v, want 10s", b.Now())
	}
}

func TestWakeFlagLeftSetStopsWakeups(t *testing.T) {
	b, c := bootController(t, sim.Options{}, testConfig(), nil)
	cycle := c.Cycle()
	cpu := c.core.CPU

	// Suspend repeatedly without clearing WUTF between wakes.
	b.SetHorizon(100 * time.Second)
	for !b.Done() {
		cpu.WaitForInterrupt()
	}

	if n := cycle.Interrupts(); n != 1 {
		t.Errorf("Interrupts() = %d, want 1 when WUTF is never cleared", n)
	}
	if n := len(b.WakeEvents()); n != 10 {
		t.Errorf("countdown elapsed %d times, want 10", n)
	}
	if b.Storming() {
		t.Error("unexpected storm")
	}
}

func TestStopPreservesState(t *testing.T) {
	b, c := bootController(t, sim.Options{}, testConfig(), nil)
	cycle := c.Cycle()

	// Clear WUTF, then compare against the state after one full wake.
	periph.ClearBits(c.dev.RTC.ISR, periph.RTC_ISR_WUTF)
	before := b.Registers()

	b.SetHorizon(10 * time.Second)
	c.core.CPU.WaitForInterrupt()

	if b.VolatileLost() {
		t.Fatal("Stop lost volatile state")
	}
	if err := WaitSync(c.dev.RTC, Spin{}); err != nil {
		t.Fatal(err)
	}
	changed := sim.Diff(before, b.Registers())
	want := []string{"RTC_ISR", "RTC_TR"}
	if len(changed) != len(want) || changed[0] != want[0] || changed[1] != want[1] {
		t.Errorf("registers changed across Stop: %v, want %v", changed, want)
	}
	if cycle.Interrupts() != 1 {
		t.Errorf("Interrupts() = %d, want 1", cycle.Interrupts())
	}
}

func TestSpuriousWakeIsNotAWakeEvent(t *testing.T) {
	works := 0
	b, c := bootController(t, sim.Options{}, testConfig(), func() { works++ })

	// With the horizon before the first elapse, WFI returns with no
	// wake flag set.
	b.SetHorizon(5 * time.Second)
	c.Cycle().Step()

	if works != 0 || c.Cycle().Wakes() != 0 {
		t.Errorf("work = %d, wakes = %d on a wake without WUTF", works, c.Cycle().Wakes())
	}
	if c.Cycle().State() != Running {
		t.Errorf("State() = %v, want %v", c.Cycle().State(), Running)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Sleeping: "sleeping", Waking: "waking", Running: "running", 7: "unknown"} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", uint32(s), s.String(), want)
		}
	}
}

type recordingCPU struct {
	periph.Processor
	rtc    periph.RTC
	masked bool
	calls  []string
}

func (r *recordingCPU) DisableInterrupts() uintptr {
	r.calls = append(r.calls, "disable")
	r.masked = true
	return r.Processor.DisableInterrupts()
}

func (r *recordingCPU) WaitForInterrupt() {
	call := "wfi"
	if !r.masked {
		call += " unmasked"
	}
	if periph.HasBits(r.rtc.ISR, periph.RTC_ISR_WUTF) {
		call += " with WUTF"
	}
	r.calls = append(r.calls, call)
	r.Processor.WaitForInterrupt()
}

func (r *recordingCPU) EnableInterrupts(mask uintptr) {
	r.calls = append(r.calls, "enable")
	r.masked = mask != 0
	r.Processor.EnableInterrupts(mask)
}

func TestStepSuspendsMasked(t *testing.T) {
	b, dev, core := newBoard(t, sim.Options{})
	cpu := &recordingCPU{Processor: core.CPU, rtc: dev.RTC}
	core.CPU = cpu
	c, err := New(dev, core, testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Boot(); err != nil {
		t.Fatal(err)
	}

	b.SetHorizon(10 * time.Second)
	c.Cycle().Step()

	want := []string{"disable", "wfi", "enable"}
	if len(cpu.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", cpu.calls, want)
	}
	for i := range want {
		if cpu.calls[i] != want[i] {
			t.Errorf("calls = %v, want %v", cpu.calls, want)
			break
		}
	}
	if c.Cycle().Interrupts() != 1 || c.Cycle().Wakes() != 1 {
		t.Errorf("interrupts %d, wakes %d, want 1 each", c.Cycle().Interrupts(), c.Cycle().Wakes())
	}
}
