//go:build !tinygo && !baremetal

package sim

import "github.com/ystepanoff/stopwake/periph"

type nvic struct{ b *Board }

func (n nvic) Bind(irq periph.IRQ, handler func()) error {
	if int(irq) >= periph.NumIRQ {
		return periph.ErrInvalidIRQ
	}
	n.b.handlers[irq] = handler
	return nil
}

func (n nvic) Enable(irq periph.IRQ) error {
	if int(irq) >= periph.NumIRQ {
		return periph.ErrInvalidIRQ
	}
	n.b.enabled[irq] = true
	return nil
}

// startCountdown runs when RTC_CR.WUTE goes from 0 to 1.
func (b *Board) startCountdown() {
	b.wutRunning = true
	b.wutLeft = b.reloadTicks()
	b.wutNext = b.now + b.tickCycles()
}

func (b *Board) reloadTicks() uint64 {
	n := uint64(b.regs[rtcWUTR]&periph.RTC_WUTR_WUT_Msk) + 1
	if b.regs[rtcCR]&periph.RTC_CR_WUCKSEL_Msk >= 0b110 {
		n += 1 << 16
	}
	return n
}

// tickCycles is the wakeup clock period in LSI cycles.
func (b *Board) tickCycles() uint64 {
	switch sel := b.regs[rtcCR] & periph.RTC_CR_WUCKSEL_Msk; sel {
	case 0b000, 0b001, 0b010, 0b011:
		return 16 >> sel
	default:
		return b.spreDivisor()
	}
}

// nextTick returns the LSI cycle of the next wakeup clock tick.
func (b *Board) nextTick() (uint64, bool) {
	if !b.wutRunning || !b.rtcClocked() {
		return 0, false
	}
	return b.wutNext, true
}

func (b *Board) tick() {
	b.now = b.wutNext
	b.wutNext += b.tickCycles()
	b.wutLeft--
	if b.wutLeft > 0 {
		return
	}
	b.wutLeft = b.reloadTicks()
	b.wakeEvents = append(b.wakeEvents, b.now)

	wasSet := b.has(rtcISR, periph.RTC_ISR_WUTF)
	b.regs[rtcISR] |= periph.RTC_ISR_WUTF
	// The wakeup line follows WUTF, so EXTI sees an edge only when the
	// flag was clear.
	if !wasSet && b.has(rtcCR, periph.RTC_CR_WUTIE) && b.has(extiRTSR1, periph.EXTI_RTSR1_TR20) {
		b.regs[extiPR1] |= periph.EXTI_PR1_PR20
	}
}

func (b *Board) pending() (periph.IRQ, bool) {
	irq := periph.IRQ_RTC_WKUP
	if b.has(extiPR1, periph.EXTI_PR1_PR20) && b.has(extiIMR1, periph.EXTI_IMR1_MR20) &&
		b.enabled[irq] && b.handlers[irq] != nil {
		return irq, true
	}
	return 0, false
}

func (b *Board) powerState() PowerState {
	if !b.has(scbSCR, periph.SCB_SCR_SLEEPDEEP) {
		return PowerSleep
	}
	if b.has(pwrCR, periph.PWR_CR_PDDS) {
		return PowerStandby
	}
	return PowerStop
}

// WaitForInterrupt suspends until an interrupt is pending, the horizon
// passes or a storm is detected. With PRIMASK clear the interrupt is
// dispatched before returning.
func (b *Board) WaitForInterrupt() {
	if b.done {
		return
	}
	state := b.powerState()
	b.suspends[state]++
	if b.has(rtcISR, periph.RTC_ISR_WUTF) || b.has(extiPR1, periph.EXTI_PR1_PR20) {
		b.dirty++
	}
	if b.onSuspend != nil {
		b.onSuspend()
	}
	if state != PowerSleep {
		// The APB clock stops, so the shadow calendar registers are not
		// updated again until software clears RSF and it sets.
		b.freezeShadow()
	}

	for {
		if _, ok := b.pending(); ok {
			break
		}
		next, ok := b.nextTick()
		if !ok || next > b.horizon {
			b.now = b.horizon
			b.done = true
			return
		}
		b.tick()
	}

	if state == PowerStandby {
		b.wakeFromStandby()
		return
	}
	if !b.primask {
		b.dispatch()
	}
}

// DisableInterrupts sets PRIMASK. A pending interrupt still ends
// WaitForInterrupt but is not dispatched until EnableInterrupts.
func (b *Board) DisableInterrupts() uintptr {
	var mask uintptr
	if b.primask {
		mask = 1
	}
	b.primask = true
	return mask
}

// EnableInterrupts restores PRIMASK from mask and dispatches anything that
// became pending while it was set.
func (b *Board) EnableInterrupts(mask uintptr) {
	b.primask = mask != 0
	if !b.primask && !b.done {
		b.dispatch()
	}
}

func (b *Board) dispatch() {
	for n := 0; ; n++ {
		irq, ok := b.pending()
		if !ok {
			return
		}
		if n == b.opts.StormLimit {
			b.storming = true
			b.done = true
			return
		}
		b.dispatches++
		b.handlers[irq]()
	}
}

// wakeFromStandby is a system reset with the backup domain kept.
func (b *Board) wakeFromStandby() {
	b.systemReset()
	b.regs[pwrCSR] |= periph.PWR_CSR_SBF | periph.PWR_CSR_WUF
	b.standby = true
	b.done = true
}
