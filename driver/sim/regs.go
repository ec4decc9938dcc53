//go:build !tinygo && !baremetal

package sim

import (
	"time"

	"github.com/ystepanoff/stopwake/periph"
)

type regID int

const (
	rccCSR regID = iota
	rccAPB1ENR
	rccBDCR
	pwrCR
	pwrCSR
	rtcTR
	rtcDR
	rtcCR
	rtcISR
	rtcPRER
	rtcWUTR
	rtcWPR
	extiIMR1
	extiRTSR1
	extiPR1
	dbgCR
	dbgAPB1FZ
	scbSCR
	numRegs
)

var regNames = [numRegs]string{
	rccCSR:     "RCC_CSR",
	rccAPB1ENR: "RCC_APB1ENR",
	rccBDCR:    "RCC_BDCR",
	pwrCR:      "PWR_CR",
	pwrCSR:     "PWR_CSR",
	rtcTR:      "RTC_TR",
	rtcDR:      "RTC_DR",
	rtcCR:      "RTC_CR",
	rtcISR:     "RTC_ISR",
	rtcPRER:    "RTC_PRER",
	rtcWUTR:    "RTC_WUTR",
	rtcWPR:     "RTC_WPR",
	extiIMR1:   "EXTI_IMR1",
	extiRTSR1:  "EXTI_RTSR1",
	extiPR1:    "EXTI_PR1",
	dbgCR:      "DBGMCU_CR",
	dbgAPB1FZ:  "DBGMCU_APB1_FZ",
	scbSCR:     "SCB_SCR",
}

func (id regID) String() string { return regNames[id] }

func (id regID) isRTC() bool { return id >= rtcTR && id <= rtcWPR }

// reg is a register view handed out in periph.Device and periph.Core.
type reg struct {
	b  *Board
	id regID
}

func (b *Board) reg(id regID) periph.Register { return reg{b, id} }

func (r reg) Get() uint32  { return r.b.read(r.id) }
func (r reg) Set(v uint32) { r.b.write(r.id, v) }

func (b *Board) has(id regID, mask uint32) bool { return b.regs[id]&mask != 0 }

func (b *Board) read(id regID) uint32 {
	switch id {
	case rccCSR:
		if b.has(rccCSR, periph.RCC_CSR_LSION) && !b.has(rccCSR, periph.RCC_CSR_LSIRDY) {
			b.lsiReads++
			if b.opts.LSIStartupReads != NeverReady && b.lsiReads >= b.opts.LSIStartupReads {
				b.regs[rccCSR] |= periph.RCC_CSR_LSIRDY
			}
		}
	case rtcISR:
		if b.has(rtcISR, periph.RTC_ISR_INIT) && !b.has(rtcISR, periph.RTC_ISR_INITF) {
			b.initReads++
			if b.opts.InitAckReads != NeverReady && b.initReads >= b.opts.InitAckReads {
				b.regs[rtcISR] |= periph.RTC_ISR_INITF
			}
		}
		if !b.has(rtcISR, periph.RTC_ISR_INIT|periph.RTC_ISR_RSF) && b.rtcClocked() {
			b.syncReads++
			if b.opts.SyncReads != NeverReady && b.syncReads >= b.opts.SyncReads {
				b.regs[rtcISR] |= periph.RTC_ISR_RSF
				b.shadowLive = true
			}
		}
	}
	return b.peek(id)
}

// counter returns the calendar counter behind TR or DR.
func (b *Board) counter(id regID) uint32 {
	if !b.calRunning {
		return b.regs[id]
	}
	tr, dr := packCalendar(b.calendarNow())
	if id == rtcTR {
		return b.regs[rtcTR]&^periph.RTC_TR_Msk | tr
	}
	const live = periph.RTC_DR_Msk | 0x7<<periph.RTC_DR_WDU_Pos
	return b.regs[rtcDR]&^live | dr
}

// freezeShadow stops the shadow registers at the current counter values.
// They stay there until RSF is next set.
func (b *Board) freezeShadow() {
	b.shadowTR, b.shadowDR = b.counter(rtcTR), b.counter(rtcDR)
	b.shadowLive = false
}

// peek returns what a read would, without advancing any handshake.
func (b *Board) peek(id regID) uint32 {
	switch id {
	case rtcTR, rtcDR:
		if b.shadowLive {
			return b.counter(id)
		}
		if id == rtcTR {
			return b.shadowTR
		}
		return b.shadowDR
	case rtcISR:
		v := b.regs[rtcISR]
		if !b.has(rtcCR, periph.RTC_CR_WUTE) {
			v |= periph.RTC_ISR_WUTWF
		} else {
			v &^= periph.RTC_ISR_WUTWF
		}
		return v
	}
	return b.regs[id]
}

func (b *Board) write(id regID, v uint32) {
	if id.isRTC() {
		b.writeRTC(id, v)
		return
	}
	switch id {
	case rccCSR:
		lsion := v & periph.RCC_CSR_LSION
		b.regs[rccCSR] = b.regs[rccCSR]&^periph.RCC_CSR_LSION | lsion
		if lsion == 0 {
			b.regs[rccCSR] &^= periph.RCC_CSR_LSIRDY
			b.lsiReads = 0
		}
	case rccBDCR:
		if !b.has(pwrCR, periph.PWR_CR_DBP) {
			return
		}
		b.writeBDCR(v)
	case pwrCR:
		if !b.has(rccAPB1ENR, periph.RCC_APB1ENR_PWREN) {
			return
		}
		if v&periph.PWR_CR_CSBF != 0 {
			b.regs[pwrCSR] &^= periph.PWR_CSR_SBF
		}
		if v&periph.PWR_CR_CWUF != 0 {
			b.regs[pwrCSR] &^= periph.PWR_CSR_WUF
		}
		b.regs[pwrCR] = v &^ (periph.PWR_CR_CSBF | periph.PWR_CR_CWUF)
	case pwrCSR:
		// Status flags only.
	case extiPR1:
		b.regs[extiPR1] &^= v
	default:
		b.regs[id] = v
	}
}

func (b *Board) writeBDCR(v uint32) {
	if v&periph.RCC_BDCR_BDRST != 0 {
		b.backupReset()
		b.regs[rccBDCR] |= periph.RCC_BDCR_BDRST
		return
	}
	if b.has(rccBDCR, periph.RCC_BDCR_BDRST) {
		// Releasing reset leaves reset values in place.
		b.regs[rccBDCR] &^= periph.RCC_BDCR_BDRST
		return
	}

	const selMask = periph.RCC_BDCR_RTCSEL_Msk << periph.RCC_BDCR_RTCSEL_Pos
	sel := v & selMask
	if b.rtcselSet {
		sel = b.regs[rccBDCR] & selMask
	} else if sel != 0 {
		b.rtcselSet = true
	}
	b.regs[rccBDCR] = v&^selMask | sel
}

// rtcClocked reports whether RTCCLK runs from a started LSI.
func (b *Board) rtcClocked() bool {
	bdcr := b.regs[rccBDCR]
	sel := bdcr >> periph.RCC_BDCR_RTCSEL_Pos & periph.RCC_BDCR_RTCSEL_Msk
	return bdcr&periph.RCC_BDCR_RTCEN != 0 && sel == periph.RCC_BDCR_RTCSEL_LSI &&
		b.has(rccCSR, periph.RCC_CSR_LSIRDY)
}

func (b *Board) writeRTC(id regID, v uint32) {
	if !b.has(pwrCR, periph.PWR_CR_DBP) || !b.has(rccBDCR, periph.RCC_BDCR_RTCEN) {
		return
	}

	if id == rtcWPR {
		switch {
		case v&periph.RTC_WPR_KEY_Msk == 0xCA:
			b.wpr = wprKeyed
		case v&periph.RTC_WPR_KEY_Msk == 0x53 && b.wpr == wprKeyed:
			b.wpr = wprUnlocked
		default:
			b.wpr = wprLocked
		}
		return
	}
	if b.wpr == wprKeyed {
		// Anything between the two keys aborts the sequence.
		b.wpr = wprLocked
	}
	unlocked := b.wpr == wprUnlocked
	initf := b.has(rtcISR, periph.RTC_ISR_INITF)

	switch id {
	case rtcISR:
		b.writeISR(v, unlocked)
	case rtcTR, rtcDR, rtcPRER:
		if unlocked && initf {
			b.regs[id] = v
		}
	case rtcWUTR:
		if unlocked && !b.has(rtcCR, periph.RTC_CR_WUTE) {
			b.regs[rtcWUTR] = v & periph.RTC_WUTR_WUT_Msk
		}
	case rtcCR:
		if unlocked {
			b.writeCR(v)
		}
	}
}

func (b *Board) writeISR(v uint32, unlocked bool) {
	old := b.regs[rtcISR]
	// Event flags are cleared by writing zero, setting them has no effect.
	next := old &^ (periph.RTC_ISR_Flags_Msk &^ v)
	if unlocked {
		next = next&^periph.RTC_ISR_INIT | v&periph.RTC_ISR_INIT
		// RSF is rc_w0 but, unlike the event flags, write protected.
		if v&periph.RTC_ISR_RSF == 0 && old&periph.RTC_ISR_RSF != 0 {
			next &^= periph.RTC_ISR_RSF
			b.syncReads = 0
			b.freezeShadow()
		}
	}
	wasInit := old&periph.RTC_ISR_INIT != 0
	isInit := next&periph.RTC_ISR_INIT != 0
	switch {
	case !wasInit && isInit:
		b.freezeShadow()
		b.regs[rtcTR], b.regs[rtcDR] = b.counter(rtcTR), b.counter(rtcDR)
		b.calRunning = false
		b.initReads = 0
		next &^= periph.RTC_ISR_RSF
	case wasInit && !isInit:
		// The shadow registers keep their pre-init values until the next
		// resync.
		next &^= periph.RTC_ISR_INITF | periph.RTC_ISR_RSF
		b.calBase = unpackCalendar(b.regs[rtcTR], b.regs[rtcDR])
		b.calEpoch = b.now
		b.calRunning = true
		b.syncReads = 0
	}
	b.regs[rtcISR] = next
}

func (b *Board) writeCR(v uint32) {
	old := b.regs[rtcCR]
	const sel = periph.RTC_CR_WUCKSEL_Msk << periph.RTC_CR_WUCKSEL_Pos
	if old&periph.RTC_CR_WUTE != 0 {
		v = v&^sel | old&sel
	}
	b.regs[rtcCR] = v
	if old&periph.RTC_CR_WUTE == 0 && v&periph.RTC_CR_WUTE != 0 {
		b.startCountdown()
	}
	if v&periph.RTC_CR_WUTE == 0 {
		b.wutRunning = false
	}
}

// spreDivisor is the number of LSI cycles per ck_spre tick.
func (b *Board) spreDivisor() uint64 {
	prer := b.regs[rtcPRER]
	a := uint64(prer>>periph.RTC_PRER_PREDIV_A_Pos&periph.RTC_PRER_PREDIV_A_Msk) + 1
	s := uint64(prer&periph.RTC_PRER_PREDIV_S_Msk) + 1
	return a * s
}

func (b *Board) calendarNow() time.Time {
	var secs uint64
	if b.rtcClocked() {
		secs = (b.now - b.calEpoch) / b.spreDivisor()
	}
	return b.calBase.Add(time.Duration(secs) * time.Second)
}

func packCalendar(t time.Time) (tr, dr uint32) {
	tr = uint32(periph.ToBCD(uint8(t.Hour())))<<periph.RTC_TR_HU_Pos |
		uint32(periph.ToBCD(uint8(t.Minute())))<<periph.RTC_TR_MNU_Pos |
		uint32(periph.ToBCD(uint8(t.Second())))<<periph.RTC_TR_SU_Pos
	wd := uint32(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	dr = uint32(periph.ToBCD(uint8(t.Year()-2000)))<<periph.RTC_DR_YU_Pos |
		wd<<periph.RTC_DR_WDU_Pos |
		uint32(periph.ToBCD(uint8(t.Month())))<<periph.RTC_DR_MU_Pos |
		uint32(periph.ToBCD(uint8(t.Day())))<<periph.RTC_DR_DU_Pos
	return tr, dr
}

func unpackCalendar(tr, dr uint32) time.Time {
	bcd := func(v uint32, shift uint, mask uint32) int {
		return int(periph.FromBCD(v >> shift & mask))
	}
	return time.Date(
		2000+bcd(dr, periph.RTC_DR_YU_Pos, 0xFF),
		time.Month(bcd(dr, periph.RTC_DR_MU_Pos, 0x1F)),
		bcd(dr, periph.RTC_DR_DU_Pos, 0x3F),
		bcd(tr, periph.RTC_TR_HU_Pos, 0x3F),
		bcd(tr, periph.RTC_TR_MNU_Pos, 0x7F),
		bcd(tr, periph.RTC_TR_SU_Pos, 0x7F),
		0, time.UTC)
}
