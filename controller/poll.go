package controller

// Poller waits for a hardware ready or acknowledge bit.
type Poller interface {
	Until(ready func() bool) error
}

// Spin polls with no bound. A bit that never sets hangs the caller, which
// is how the hardware reports a dead oscillator or peripheral.
type Spin struct{}

func (Spin) Until(ready func() bool) error {
	for !ready() {
	}
	return nil
}

// Bounded gives up with ErrNotReady after Attempts polls.
type Bounded struct {
	Attempts int
}

func (b Bounded) Until(ready func() bool) error {
	for i := 0; i < b.Attempts; i++ {
		if ready() {
			return nil
		}
	}
	return ErrNotReady
}
