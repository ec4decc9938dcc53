package controller

import (
	"fmt"

	"github.com/ystepanoff/stopwake/periph"
)

// RTC_WPR keys, RM0316 27.3.7. Both must be written in this order with no
// other RTC write in between; any other value relocks.
const (
	wprKey1   = 0xCA
	wprKey2   = 0x53
	wprRelock = 0xFF
)

// UnlockRTC disables RTC register write protection.
func UnlockRTC(rtc periph.RTC) {
	rtc.WPR.Set(wprKey1)
	rtc.WPR.Set(wprKey2)
}

// LockRTC re-enables RTC register write protection.
func LockRTC(rtc periph.RTC) {
	rtc.WPR.Set(wprRelock)
}

// ConfigureCalendar programs the prescaler, time and date in
// initialization mode and leaves the calendar running. RTC write
// protection stays disabled for the wakeup timer setup that follows.
func ConfigureCalendar(rtc periph.RTC, cal Calendar, pre Prescaler, poll Poller) error {
	UnlockRTC(rtc)

	periph.SetBits(rtc.ISR, periph.RTC_ISR_INIT)
	if err := poll.Until(func() bool { return periph.HasBits(rtc.ISR, periph.RTC_ISR_INITF) }); err != nil {
		return fmt.Errorf("enter init mode: %w", err)
	}

	// Both factors take two separate writes, synchronous first.
	sync := uint32(pre.Sync) & periph.RTC_PRER_PREDIV_S_Msk
	async := uint32(pre.Async) & periph.RTC_PRER_PREDIV_A_Msk
	rtc.PRER.Set(sync << periph.RTC_PRER_PREDIV_S_Pos)
	rtc.PRER.Set(async<<periph.RTC_PRER_PREDIV_A_Pos | sync<<periph.RTC_PRER_PREDIV_S_Pos)

	// PM, WDU and FMT keep their reset values: 24-hour format, weekday
	// untouched.
	periph.ReplaceBits(rtc.TR, packTime(cal.Time), periph.RTC_TR_Msk, 0)
	periph.ReplaceBits(rtc.DR, packDate(cal.Date), periph.RTC_DR_Msk, 0)

	periph.ClearBits(rtc.ISR, periph.RTC_ISR_INIT)
	return nil
}

// WaitSync clears RSF and waits for the shadow registers to be reloaded
// from the calendar (RM0316 27.3.8). TR and DR are only current after
// leaving init mode or waking from Stop once this returns. RSF is write
// protected, so write protection must be disabled.
func WaitSync(rtc periph.RTC, poll Poller) error {
	periph.ClearBits(rtc.ISR, periph.RTC_ISR_RSF)
	if err := poll.Until(func() bool { return periph.HasBits(rtc.ISR, periph.RTC_ISR_RSF) }); err != nil {
		return fmt.Errorf("calendar shadow sync: %w", err)
	}
	return nil
}

// ReadCalendar resynchronises the shadow registers and decodes RTC_TR and
// RTC_DR.
func ReadCalendar(rtc periph.RTC, poll Poller) (Calendar, error) {
	if err := WaitSync(rtc, poll); err != nil {
		return Calendar{}, err
	}
	return decodeCalendar(rtc), nil
}

// decodeCalendar reads TR then DR. Reading TR locks DR until it is read.
func decodeCalendar(rtc periph.RTC) Calendar {
	return Calendar{
		Time: unpackTime(rtc.TR.Get()),
		Date: unpackDate(rtc.DR.Get()),
	}
}

func packTime(t Time) uint32 {
	return uint32(periph.ToBCD(t.Hour))<<periph.RTC_TR_HU_Pos |
		uint32(periph.ToBCD(t.Minute))<<periph.RTC_TR_MNU_Pos |
		uint32(periph.ToBCD(t.Second))<<periph.RTC_TR_SU_Pos
}

func unpackTime(tr uint32) Time {
	return Time{
		Hour:   periph.FromBCD(uint8(tr>>periph.RTC_TR_HU_Pos) & 0x3F),
		Minute: periph.FromBCD(uint8(tr>>periph.RTC_TR_MNU_Pos) & 0x7F),
		Second: periph.FromBCD(uint8(tr>>periph.RTC_TR_SU_Pos) & 0x7F),
	}
}

func packDate(d Date) uint32 {
	return uint32(periph.ToBCD(d.Year))<<periph.RTC_DR_YU_Pos |
		uint32(periph.ToBCD(d.Month))<<periph.RTC_DR_MU_Pos |
		uint32(periph.ToBCD(d.Day))<<periph.RTC_DR_DU_Pos
}

func unpackDate(dr uint32) Date {
	return Date{
		Year:  periph.FromBCD(uint8(dr >> periph.RTC_DR_YU_Pos)),
		Month: periph.FromBCD(uint8(dr>>periph.RTC_DR_MU_Pos) & 0x1F),
		Day:   periph.FromBCD(uint8(dr>>periph.RTC_DR_DU_Pos) & 0x3F),
	}
}
