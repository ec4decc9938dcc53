package periph

import "errors"

var (
	ErrAlreadyTaken = errors.New("peripherals already taken")
	ErrInvalidIRQ   = errors.New("invalid interrupt number")
)
