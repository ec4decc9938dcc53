// Package periph is the register access layer for the STM32F3 peripherals
// used to bring up the RTC wakeup timer and enter Stop mode.
//
// Registers are reached through the Register interface so the same
// sequencing code drives the real memory-mapped registers on the target
// and the simulated register file on the host.
package periph

// Register is a single 32-bit peripheral register. *volatile.Register32
// satisfies it on the target.
type Register interface {
	Get() uint32
	Set(value uint32)
}

// SetBits reads r, sets the bits in mask and writes the result back.
func SetBits(r Register, mask uint32) {
	r.Set(r.Get() | mask)
}

// ClearBits reads r, clears the bits in mask and writes the result back.
func ClearBits(r Register, mask uint32) {
	r.Set(r.Get() &^ mask)
}

// HasBits reports whether any bit of mask is set in r.
func HasBits(r Register, mask uint32) bool {
	return r.Get()&mask != 0
}

// ReplaceBits replaces the field of r selected by mask (unshifted) at pos
// with value. The signature matches volatile.Register32.ReplaceBits.
func ReplaceBits(r Register, value uint32, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | (value&mask)<<pos)
}

// Field extracts the field selected by mask (unshifted) at pos.
func Field(r Register, mask uint32, pos uint8) uint32 {
	return (r.Get() >> pos) & mask
}
