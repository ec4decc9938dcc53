//go:build tinygo || baremetal

// Package stm32 binds the peripheral sets to the real STM32F3 registers.
package stm32

import (
	"device/arm"
	"device/stm32"
	"runtime/interrupt"

	"github.com/ystepanoff/stopwake/periph"
)

// The vector table is fixed at link time, so the RTC_WKUP entry is
// registered here and forwards to whatever Bind installed.
var (
	wakeupHandler func()
	wakeupIRQ     = interrupt.New(stm32.IRQ_RTC_WKUP, func(interrupt.Interrupt) {
		if h := wakeupHandler; h != nil {
			h()
		}
	})
)

// issuer is the only way out of the package for the register views.
var issuer = periph.NewIssuer(device(), core())

// Issuer returns the chip's issuer. The memory-mapped registers exist once,
// so every call returns the same issuer.
func Issuer() *periph.Issuer { return issuer }

func device() *periph.Device {
	return &periph.Device{
		RCC: periph.RCC{
			CSR:     &stm32.RCC.CSR,
			APB1ENR: &stm32.RCC.APB1ENR,
			BDCR:    &stm32.RCC.BDCR,
		},
		PWR: periph.PWR{
			CR:  &stm32.PWR.CR,
			CSR: &stm32.PWR.CSR,
		},
		RTC: periph.RTC{
			TR:   &stm32.RTC.TR,
			DR:   &stm32.RTC.DR,
			CR:   &stm32.RTC.CR,
			ISR:  &stm32.RTC.ISR,
			PRER: &stm32.RTC.PRER,
			WUTR: &stm32.RTC.WUTR,
			WPR:  &stm32.RTC.WPR,
		},
		EXTI: periph.EXTI{
			IMR1:  &stm32.EXTI.IMR1,
			RTSR1: &stm32.EXTI.RTSR1,
			PR1:   &stm32.EXTI.PR1,
		},
		DBGMCU: periph.DBGMCU{
			CR:     &stm32.DBGMCU.CR,
			APB1FZ: &stm32.DBGMCU.APB1FZ,
		},
	}
}

func core() *periph.Core {
	return &periph.Core{
		SCB:  periph.SCB{SCR: &arm.SCB.SCR},
		NVIC: nvic{},
		CPU:  cpu{},
	}
}

type nvic struct{}

// Bind only supports RTC_WKUP, the one vector this firmware registers.
func (nvic) Bind(irq periph.IRQ, handler func()) error {
	if irq != periph.IRQ_RTC_WKUP {
		return periph.ErrInvalidIRQ
	}
	wakeupHandler = handler
	return nil
}

func (nvic) Enable(irq periph.IRQ) error {
	if irq != periph.IRQ_RTC_WKUP {
		return periph.ErrInvalidIRQ
	}
	wakeupIRQ.Enable()
	return nil
}

type cpu struct{}

func (cpu) WaitForInterrupt() { arm.Asm("wfi") }

func (cpu) DisableInterrupts() uintptr { return arm.DisableInterrupts() }

func (cpu) EnableInterrupts(mask uintptr) { arm.EnableInterrupts(mask) }
