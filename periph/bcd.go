package periph

import "golang.org/x/exp/constraints"

// ToBCD packs a two-digit decimal value into tens/units nibbles.
// Values above 99 are a caller error and are not checked.
func ToBCD[T constraints.Unsigned](v T) T {
	return (v/10)<<4 | v%10
}

// FromBCD unpacks tens/units nibbles into a decimal value.
func FromBCD[T constraints.Unsigned](v T) T {
	return (v>>4)*10 + v&0x0F
}
