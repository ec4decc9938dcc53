package controller

import (
	"fmt"

	"github.com/ystepanoff/stopwake/periph"
)

// ConfigureSleep sets up what the next suspend enters. Standby is refused:
// waking from it is a reset and the wake cycle state would be lost.
func ConfigureSleep(dev *periph.Device, scb periph.SCB, cfg SleepConfig) error {
	switch cfg.Mode {
	case ModeRun:
		periph.ClearBits(scb.SCR, periph.SCB_SCR_SLEEPDEEP)
	case ModeStop:
		cr := dev.PWR.CR.Get()
		// CSBF reads as zero; writing one clears a standby flag left by an
		// earlier cycle.
		cr |= periph.PWR_CR_CSBF
		if cfg.LowPowerRegulator {
			cr |= periph.PWR_CR_LPDS
		} else {
			cr &^= periph.PWR_CR_LPDS
		}
		cr &^= periph.PWR_CR_PDDS
		dev.PWR.CR.Set(cr)
		periph.SetBits(scb.SCR, periph.SCB_SCR_SLEEPDEEP)
	case ModeStandby:
		return ErrStandbyLosesState
	default:
		return fmt.Errorf("%w: sleep mode %d", ErrInvalidConfig, cfg.Mode)
	}

	if cfg.FreezeOnDebug {
		periph.SetBits(dev.DBGMCU.CR, periph.DBGMCU_CR_DBG_STOP)
		periph.SetBits(dev.DBGMCU.APB1FZ, periph.DBGMCU_APB1FZ_DBG_RTC_STOP)
	}
	return nil
}
