package controller

import (
	"fmt"
	"time"

	"github.com/ystepanoff/stopwake/periph"
)

// RouteWakeupInterrupt arms the path from the RTC wakeup event to handler:
// EXTI line 20 unmasked on the rising edge, then the RTC_WKUP vector bound
// and unmasked in the NVIC.
func RouteWakeupInterrupt(exti periph.EXTI, nvic periph.NVIC, handler func()) error {
	periph.SetBits(exti.IMR1, periph.EXTI_IMR1_MR20)
	periph.SetBits(exti.RTSR1, periph.EXTI_RTSR1_TR20)

	if err := nvic.Bind(periph.IRQ_RTC_WKUP, handler); err != nil {
		return fmt.Errorf("bind RTC_WKUP: %w", err)
	}
	if err := nvic.Enable(periph.IRQ_RTC_WKUP); err != nil {
		return fmt.Errorf("enable RTC_WKUP: %w", err)
	}
	return nil
}

// ProgramWakeup loads the auto-reload value and clock selector and enables
// the wakeup interrupt, leaving the countdown itself stopped. RTC write
// protection must already be disabled.
func ProgramWakeup(rtc periph.RTC, reload uint16, clock WakeupClock, poll Poller) error {
	// WUTR and WUCKSEL accept writes only while WUTE is clear and WUTWF
	// confirms it (RM0316 27.3.6).
	periph.ClearBits(rtc.CR, periph.RTC_CR_WUTE)
	if err := poll.Until(func() bool { return periph.HasBits(rtc.ISR, periph.RTC_ISR_WUTWF) }); err != nil {
		return fmt.Errorf("wakeup timer write access: %w", err)
	}

	rtc.WUTR.Set(uint32(reload) & periph.RTC_WUTR_WUT_Msk)
	periph.ReplaceBits(rtc.CR, uint32(clock), periph.RTC_CR_WUCKSEL_Msk, periph.RTC_CR_WUCKSEL_Pos)
	periph.SetBits(rtc.CR, periph.RTC_CR_WUTIE)
	return nil
}

// StartWakeup starts the countdown. The interrupt path and sleep mode must
// be configured first or the first wake event is lost.
func StartWakeup(rtc periph.RTC) {
	periph.SetBits(rtc.CR, periph.RTC_CR_WUTE)
}

// WakeupPeriod is the interval between wake events for an RTCCLK of
// lsiHz. With ck_spre the period is (reload+1) ck_spre ticks. A stopped
// clock never wakes and gives 0.
func WakeupPeriod(lsiHz uint32, pre Prescaler, clock WakeupClock, reload uint16) time.Duration {
	if lsiHz == 0 {
		return 0
	}
	ticks := uint64(reload) + 1
	var cyclesPerTick uint64
	switch clock {
	case WakeupClockRTCDiv16:
		cyclesPerTick = 16
	case WakeupClockRTCDiv8:
		cyclesPerTick = 8
	case WakeupClockRTCDiv4:
		cyclesPerTick = 4
	case WakeupClockRTCDiv2:
		cyclesPerTick = 2
	case WakeupClockSPREExtended:
		ticks += 1 << 16
		cyclesPerTick = uint64(pre.Divisor())
	default:
		cyclesPerTick = uint64(pre.Divisor())
	}
	seconds := float64(ticks*cyclesPerTick) / float64(lsiHz)
	return time.Duration(seconds * float64(time.Second))
}

// PeriodRange bounds the wake period over the LSI tolerance band.
func PeriodRange(pre Prescaler, clock WakeupClock, reload uint16) (min, max time.Duration) {
	return WakeupPeriod(LSIMaxHz, pre, clock, reload), WakeupPeriod(LSIMinHz, pre, clock, reload)
}
