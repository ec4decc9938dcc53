//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets (host-based testing).
package stopwake

import (
	"github.com/ystepanoff/stopwake/driver/sim"
	"github.com/ystepanoff/stopwake/periph"
)

var hostBoard = sim.NewBoard(sim.Options{})

func newIssuer() *periph.Issuer {
	return hostBoard.Issuer()
}
