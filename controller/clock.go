package controller

import (
	"fmt"

	"github.com/ystepanoff/stopwake/periph"
)

// Bootstrap selects the LSI as RTC clock and enables the RTC, starting
// from a freshly reset backup domain.
//
// The backup domain survives system resets and USB unplugs, so it is reset
// unconditionally to drop any clock selection left by a previous run.
func Bootstrap(dev *periph.Device, poll Poller) error {
	rcc := dev.RCC

	periph.SetBits(rcc.CSR, periph.RCC_CSR_LSION)
	if err := poll.Until(func() bool { return periph.HasBits(rcc.CSR, periph.RCC_CSR_LSIRDY) }); err != nil {
		return fmt.Errorf("LSI start: %w", err)
	}

	// PWR registers are gated by PWREN. DBP opens the backup domain for
	// writes (RM0316 9.4.9) and is cleared again by a wake from Standby.
	periph.SetBits(rcc.APB1ENR, periph.RCC_APB1ENR_PWREN)
	periph.SetBits(dev.PWR.CR, periph.PWR_CR_DBP)

	periph.SetBits(rcc.BDCR, periph.RCC_BDCR_BDRST)
	periph.ClearBits(rcc.BDCR, periph.RCC_BDCR_BDRST)

	// RTCSEL can be written once per backup-domain reset.
	periph.ReplaceBits(rcc.BDCR, periph.RCC_BDCR_RTCSEL_LSI, periph.RCC_BDCR_RTCSEL_Msk, periph.RCC_BDCR_RTCSEL_Pos)
	periph.SetBits(rcc.BDCR, periph.RCC_BDCR_RTCEN)
	return nil
}
