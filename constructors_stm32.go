//go:build tinygo || baremetal

// This file is built only for embedded targets (using the real registers).
package stopwake

import (
	"github.com/ystepanoff/stopwake/driver/stm32"
	"github.com/ystepanoff/stopwake/periph"
)

func newIssuer() *periph.Issuer {
	return stm32.Issuer()
}
