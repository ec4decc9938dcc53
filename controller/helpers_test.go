package controller

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/ystepanoff/stopwake/driver/sim"
	"github.com/ystepanoff/stopwake/periph"
)

// exactLSI makes ck_spre exactly 1 Hz with the default prescaler.
const exactLSI = (DefaultPrescalerAsync + 1) * (DefaultPrescalerSync + 1)

func newBoard(t *testing.T, opts sim.Options) (*sim.Board, *periph.Device, *periph.Core) {
	t.Helper()
	if opts.LSIHz == 0 {
		opts.LSIHz = exactLSI
	}
	b := sim.NewBoard(opts)
	dev, core, err := b.Issuer().Take()
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	return b, dev, core
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Poller = Bounded{Attempts: 100}
	cfg.Logger = log.New(io.Discard, "", 0)
	return cfg
}

func bootController(t *testing.T, opts sim.Options, cfg Config, work func()) (*sim.Board, *Controller) {
	t.Helper()
	b, dev, core := newBoard(t, opts)
	c, err := New(dev, core, cfg, work)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	return b, c
}

func runFor(b *sim.Board, c *Cycle, d time.Duration) {
	b.SetHorizon(d)
	for !b.Done() {
		c.Step()
	}
}
