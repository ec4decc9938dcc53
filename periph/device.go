package periph

// IRQ is an NVIC interrupt number.
type IRQ uint8

const (
	// IRQ_RTC_WKUP is the RTC wakeup timer interrupt through EXTI line 20.
	IRQ_RTC_WKUP IRQ = 3

	// NumIRQ is the number of device interrupt lines on the STM32F303xC.
	NumIRQ = 82
)

// noCopy makes go vet's copylocks check flag copies of the peripheral sets.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type RCC struct {
	CSR     Register
	APB1ENR Register
	BDCR    Register
}

type PWR struct {
	CR  Register
	CSR Register
}

type RTC struct {
	TR   Register
	DR   Register
	CR   Register
	ISR  Register
	PRER Register
	WUTR Register
	WPR  Register
}

type EXTI struct {
	IMR1  Register
	RTSR1 Register
	PR1   Register
}

type DBGMCU struct {
	CR     Register
	APB1FZ Register
}

// Device is the device-level peripheral set. There is exactly one per
// chip, so it is handed out once through an Issuer and passed by pointer.
type Device struct {
	_ noCopy

	RCC    RCC
	PWR    PWR
	RTC    RTC
	EXTI   EXTI
	DBGMCU DBGMCU
}

type SCB struct {
	SCR Register
}

// NVIC binds handlers to interrupt vectors and unmasks them.
type NVIC interface {
	// Bind routes irq to handler. Bindings are fixed once the wake cycle
	// is armed and must be made before Enable.
	Bind(irq IRQ, handler func()) error
	Enable(irq IRQ) error
}

// Processor is the suspend point of the core.
type Processor interface {
	// WaitForInterrupt suspends until an interrupt is pending, like the
	// WFI instruction. With interrupts enabled the handler has run by the
	// time it returns.
	WaitForInterrupt()
	// DisableInterrupts sets PRIMASK and returns the previous mask.
	DisableInterrupts() uintptr
	// EnableInterrupts restores a mask from DisableInterrupts. Interrupts
	// that became pending meanwhile are serviced on return.
	EnableInterrupts(mask uintptr)
}

// Core is the Cortex-M core peripheral set.
type Core struct {
	_ noCopy

	SCB  SCB
	NVIC NVIC
	CPU  Processor
}
