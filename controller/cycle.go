package controller

import (
	"sync/atomic"

	"github.com/ystepanoff/stopwake/periph"
)

// State is the position of the wake cycle.
type State uint32

const (
	Sleeping State = iota
	Waking
	Running
)

func (s State) String() string {
	switch s {
	case Sleeping:
		return "sleeping"
	case Waking:
		return "waking"
	case Running:
		return "running"
	}
	return "unknown"
}

// Cycle is the steady-state sleep/wake loop and its interrupt handler.
//
// Each side clears exactly one flag. The handler clears the EXTI pending
// bit so the interrupt does not re-dispatch; the loop clears RTC_ISR.WUTF
// before suspending so the next countdown produces a new edge. Neither
// touches the other's register, so no locking is needed.
type Cycle struct {
	rtc  periph.RTC
	exti periph.EXTI
	cpu  periph.Processor
	work func()

	state      atomic.Uint32
	wakes      atomic.Uint32
	interrupts atomic.Uint32
}

// NewCycle prepares the loop. work runs once per wake event in the main
// context and may be nil.
func NewCycle(dev *periph.Device, core *periph.Core, work func()) *Cycle {
	c := &Cycle{
		rtc:  dev.RTC,
		exti: dev.EXTI,
		cpu:  core.CPU,
		work: work,
	}
	c.state.Store(uint32(Running))
	return c
}

// HandleInterrupt is the RTC_WKUP service routine.
func (c *Cycle) HandleInterrupt() {
	c.state.Store(uint32(Waking))
	// PR1 is write-one-to-clear; writing only our bit leaves other
	// lines' pending state alone.
	c.exti.PR1.Set(periph.EXTI_PR1_PR20)
	c.interrupts.Add(1)
	c.state.Store(uint32(Running))
}

// Start enables the wakeup countdown. It is the last bring-up step.
func (c *Cycle) Start() {
	StartWakeup(c.rtc)
}

// Step runs one Running -> Sleeping -> Waking -> Running round.
//
// Interrupts are masked from clearing WUTF until after WFI. A countdown
// that elapses in between still ends WFI, since WFI wakes on a pending
// interrupt regardless of PRIMASK, and the handler runs on unmask.
// Unmasked, the handler could clear PR20 before WFI while WUTF stayed set,
// and the next countdown would raise no edge.
func (c *Cycle) Step() {
	mask := c.cpu.DisableInterrupts()
	periph.ClearBits(c.rtc.ISR, periph.RTC_ISR_WUTF)
	c.state.Store(uint32(Sleeping))
	c.cpu.WaitForInterrupt()
	c.cpu.EnableInterrupts(mask)
	c.state.Store(uint32(Running))

	// Other interrupts also end WFI. Only a set wake flag is a wake event.
	if periph.HasBits(c.rtc.ISR, periph.RTC_ISR_WUTF) {
		c.wakes.Add(1)
		if c.work != nil {
			c.work()
		}
	}
}

// Run steps forever. The wake cycle has no disarm path.
func (c *Cycle) Run() {
	for {
		c.Step()
	}
}

func (c *Cycle) State() State { return State(c.state.Load()) }

// Wakes is the number of wake events seen by the loop.
func (c *Cycle) Wakes() uint32 { return c.wakes.Load() }

// Interrupts is the number of handler invocations.
func (c *Cycle) Interrupts() uint32 { return c.interrupts.Load() }
