//go:build !tinygo && !baremetal

// Package sim is a behavioural model of the STM32F3 RCC, PWR, RTC, EXTI,
// DBGMCU and core registers used by the wake cycle, for host-side testing.
//
// Time is counted in LSI cycles and only moves while the simulated core is
// suspended in WaitForInterrupt. The model is single threaded: handlers
// run on the goroutine that called WaitForInterrupt.
package sim

import (
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/ystepanoff/stopwake/periph"
)

// NeverReady disables a ready or acknowledge bit in Options.
const NeverReady = -1

type Options struct {
	// LSIHz is the simulated LSI frequency. Zero uses 40 kHz.
	LSIHz uint64
	// LSIStartupReads is how many RCC_CSR reads after LSION pass before
	// LSIRDY sets. Zero uses 3.
	LSIStartupReads int
	// InitAckReads is how many RTC_ISR reads after INIT pass before INITF
	// sets. Zero uses 2.
	InitAckReads int
	// StormLimit is how many back-to-back dispatches without time moving
	// count as an interrupt storm. Zero uses 64.
	StormLimit int
	// Horizon ends the simulation. Zero uses one hour.
	Horizon time.Duration
	// SyncReads is how many RTC_ISR reads with RSF clear pass before the
	// shadow calendar registers resync and RSF sets. Zero uses 2.
	SyncReads int
	// StaleBackupDomain starts with an RTC clocked from the LSE and a
	// running wakeup timer, as left by an earlier firmware.
	StaleBackupDomain bool
}

func (o Options) withDefaults() Options {
	if o.LSIHz == 0 {
		o.LSIHz = 40000
	}
	if o.LSIStartupReads == 0 {
		o.LSIStartupReads = 3
	}
	if o.InitAckReads == 0 {
		o.InitAckReads = 2
	}
	if o.SyncReads == 0 {
		o.SyncReads = 2
	}
	if o.StormLimit == 0 {
		o.StormLimit = 64
	}
	if o.Horizon == 0 {
		o.Horizon = time.Hour
	}
	return o
}

// PowerState is what a WaitForInterrupt entered.
type PowerState int

const (
	PowerSleep PowerState = iota
	PowerStop
	PowerStandby
)

func (p PowerState) String() string {
	switch p {
	case PowerSleep:
		return "sleep"
	case PowerStop:
		return "stop"
	case PowerStandby:
		return "standby"
	}
	return fmt.Sprintf("PowerState(%d)", int(p))
}

type wprState int

const (
	wprLocked wprState = iota
	wprKeyed
	wprUnlocked
)

// Board is one simulated chip.
type Board struct {
	opts Options
	regs [numRegs]uint32
	now  uint64

	issuer *periph.Issuer

	lsiReads  int
	initReads int
	syncReads int
	wpr       wprState
	rtcselSet bool

	// Calendar base and the LSI cycle it was loaded at.
	calRunning bool
	calBase    time.Time
	calEpoch   uint64

	// TR and DR as the APB side sees them. They follow the calendar
	// only while shadowLive is set.
	shadowTR, shadowDR uint32
	shadowLive         bool

	// Wakeup countdown, in wakeup clock ticks.
	wutRunning bool
	wutLeft    uint64
	wutNext    uint64

	primask  bool
	enabled  [periph.NumIRQ]bool
	handlers [periph.NumIRQ]func()

	horizon    uint64
	done       bool
	storming   bool
	standby    bool
	dispatches int
	suspends   [3]int
	dirty      int
	wakeEvents []uint64
	onSuspend  func()
}

func NewBoard(opts Options) *Board {
	b := &Board{opts: opts.withDefaults()}
	b.horizon = b.cycles(b.opts.Horizon)
	b.powerOnReset()
	if b.opts.StaleBackupDomain {
		b.regs[rccBDCR] = periph.RCC_BDCR_Reset | periph.RCC_BDCR_RTCEN |
			periph.RCC_BDCR_RTCSEL_LSE<<periph.RCC_BDCR_RTCSEL_Pos
		b.rtcselSet = true
		b.regs[rtcCR] = uint32(0b100) | periph.RTC_CR_WUTIE | periph.RTC_CR_WUTE
		b.regs[rtcWUTR] = 2
	}
	b.issuer = periph.NewIssuer(b.device(), b.core())
	return b
}

func (b *Board) powerOnReset() {
	b.systemReset()
	b.backupReset()
}

// systemReset returns everything outside the backup domain to reset values.
func (b *Board) systemReset() {
	b.regs[rccCSR] = periph.RCC_CSR_Reset
	b.regs[rccAPB1ENR] = 0
	b.regs[pwrCR] = 0
	b.regs[pwrCSR] = 0
	b.regs[extiIMR1] = periph.EXTI_IMR1_Reset
	b.regs[extiRTSR1] = 0
	b.regs[extiPR1] = 0
	b.regs[dbgCR] = 0
	b.regs[dbgAPB1FZ] = 0
	b.regs[scbSCR] = 0
	b.lsiReads = 0
	b.primask = false
	b.enabled = [periph.NumIRQ]bool{}
}

// backupReset is the effect of RCC_BDCR.BDRST.
func (b *Board) backupReset() {
	b.regs[rccBDCR] = periph.RCC_BDCR_Reset
	b.regs[rtcTR] = 0
	b.regs[rtcDR] = periph.RTC_DR_Reset
	b.regs[rtcCR] = 0
	b.regs[rtcISR] = periph.RTC_ISR_Reset
	b.regs[rtcPRER] = periph.RTC_PRER_Reset
	b.regs[rtcWUTR] = periph.RTC_WUTR_Reset
	b.regs[rtcWPR] = 0
	b.rtcselSet = false
	b.wpr = wprLocked
	b.initReads = 0
	b.syncReads = 0
	b.calRunning = false
	b.shadowTR, b.shadowDR = b.regs[rtcTR], b.regs[rtcDR]
	b.shadowLive = false
	b.wutRunning = false
}

// device builds register views over the board. They leave the package only
// through the board's issuer.
func (b *Board) device() *periph.Device {
	return &periph.Device{
		RCC: periph.RCC{CSR: b.reg(rccCSR), APB1ENR: b.reg(rccAPB1ENR), BDCR: b.reg(rccBDCR)},
		PWR: periph.PWR{CR: b.reg(pwrCR), CSR: b.reg(pwrCSR)},
		RTC: periph.RTC{
			TR: b.reg(rtcTR), DR: b.reg(rtcDR), CR: b.reg(rtcCR), ISR: b.reg(rtcISR),
			PRER: b.reg(rtcPRER), WUTR: b.reg(rtcWUTR), WPR: b.reg(rtcWPR),
		},
		EXTI:   periph.EXTI{IMR1: b.reg(extiIMR1), RTSR1: b.reg(extiRTSR1), PR1: b.reg(extiPR1)},
		DBGMCU: periph.DBGMCU{CR: b.reg(dbgCR), APB1FZ: b.reg(dbgAPB1FZ)},
	}
}

func (b *Board) core() *periph.Core {
	return &periph.Core{
		SCB:  periph.SCB{SCR: b.reg(scbSCR)},
		NVIC: nvic{b},
		CPU:  b,
	}
}

// Issuer returns the board's issuer. Every call returns the same issuer,
// so the peripheral sets can be taken once per board.
func (b *Board) Issuer() *periph.Issuer { return b.issuer }

func (b *Board) cycles(d time.Duration) uint64 {
	return uint64(d)/uint64(time.Second)*b.opts.LSIHz +
		uint64(d)%uint64(time.Second)*b.opts.LSIHz/uint64(time.Second)
}

func (b *Board) duration(c uint64) time.Duration {
	hz := b.opts.LSIHz
	return time.Duration(c/hz)*time.Second + time.Duration(c%hz*uint64(time.Second)/hz)
}

// Now is the simulated time since power-on.
func (b *Board) Now() time.Duration { return b.duration(b.now) }

// SetHorizon moves the end of the simulation and clears a previous
// horizon stop.
func (b *Board) SetHorizon(d time.Duration) {
	b.horizon = b.cycles(d)
	if !b.storming && !b.standby {
		b.done = false
	}
}

// Done reports that the horizon was reached, an interrupt storm was
// detected or the chip went to Standby.
func (b *Board) Done() bool { return b.done }

func (b *Board) Storming() bool { return b.storming }

// VolatileLost reports that Standby was entered and woken from, wiping
// SRAM and the core domain.
func (b *Board) VolatileLost() bool { return b.standby }

// Dispatches is the total number of interrupt handler invocations.
func (b *Board) Dispatches() int { return b.dispatches }

// Suspends counts WaitForInterrupt calls by the power state entered.
func (b *Board) Suspends(p PowerState) int { return b.suspends[p] }

// DirtySuspends counts suspends entered with RTC_ISR.WUTF or EXTI PR20
// still set.
func (b *Board) DirtySuspends() int { return b.dirty }

// WakeEvents returns the times at which the wakeup countdown elapsed.
func (b *Board) WakeEvents() []time.Duration {
	out := make([]time.Duration, len(b.wakeEvents))
	for i, c := range b.wakeEvents {
		out[i] = b.duration(c)
	}
	return out
}

// OnSuspend registers fn to run at every suspend, before time moves.
func (b *Board) OnSuspend(fn func()) { b.onSuspend = fn }

// Peek reads a register without side effects.
func (b *Board) Peek(name string) (uint32, bool) {
	id := slices.Index(regNames[:], name)
	if id < 0 {
		return 0, false
	}
	return b.peek(regID(id)), true
}
