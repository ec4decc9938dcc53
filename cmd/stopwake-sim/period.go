package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ystepanoff/stopwake/controller"
)

var errZeroLSI = errors.New("--lsi must be above 0 Hz")

var (
	lsiHz uint32

	periodCmd = &cobra.Command{
		Use:   "period",
		Short: "Print the wake period of a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lsiHz == 0 {
				return errZeroLSI
			}
			p, err := loadProfile()
			if err != nil {
				return err
			}
			cfg, err := p.Config()
			if err != nil {
				return err
			}
			out := newConsole()
			lo, hi := controller.PeriodRange(cfg.Prescaler, cfg.WakeupClock, cfg.WakeupReload)
			fmt.Fprintf(out, "reload %d, selector %#03b, prescaler %d/%d\n",
				cfg.WakeupReload, uint8(cfg.WakeupClock), cfg.Prescaler.Async, cfg.Prescaler.Sync)
			fmt.Fprintf(out, "  at %d Hz: %v\n", lsiHz,
				controller.WakeupPeriod(lsiHz, cfg.Prescaler, cfg.WakeupClock, cfg.WakeupReload))
			fmt.Fprintf(out, "  LSI %d-%d Hz: %v to %v\n", controller.LSIMinHz, controller.LSIMaxHz, lo, hi)
			return nil
		},
	}
)

func init() {
	periodCmd.Flags().Uint32Var(&lsiHz, "lsi", controller.LSINominalHz, "LSI frequency in Hz")
}
