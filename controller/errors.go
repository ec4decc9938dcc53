package controller

import "errors"

var (
	ErrNotReady          = errors.New("hardware did not become ready")
	ErrStandbyLosesState = errors.New("standby mode discards RTC and RAM state on wake")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
