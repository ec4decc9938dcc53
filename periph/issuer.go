package periph

import "sync/atomic"

// Issuer hands out the device and core peripheral sets together, at most
// once. A second request fails with ErrAlreadyTaken and never returns an
// alias.
type Issuer struct {
	device *Device
	core   *Core
	taken  atomic.Bool
}

func NewIssuer(device *Device, core *Core) *Issuer {
	return &Issuer{device: device, core: core}
}

// Take returns both peripheral sets. Only the first call succeeds.
func (i *Issuer) Take() (*Device, *Core, error) {
	if !i.taken.CompareAndSwap(false, true) {
		return nil, nil, ErrAlreadyTaken
	}
	d, c := i.device, i.core
	i.device, i.core = nil, nil
	return d, c, nil
}
