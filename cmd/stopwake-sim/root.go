package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ystepanoff/stopwake/internal/profile"
)

var (
	profilePath string

	rootCmd = &cobra.Command{
		Use:          "stopwake-sim",
		Short:        "Simulate the RTC wakeup controller",
		Long:         "Boot the RTC wakeup controller on a simulated STM32F3 and check the bring-up plan and wake period.",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "profiles/discovery.yaml", "simulation profile")
	rootCmd.AddCommand(runCmd, planCmd, periodCmd)
}

// console is stdout, with ANSI colours translated on Windows consoles and
// dropped when stdout is not a terminal.
type console struct {
	io.Writer
	color bool
}

func newConsole() console {
	fd := os.Stdout.Fd()
	return console{
		Writer: colorable.NewColorableStdout(),
		color:  isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

const (
	green = "32"
	red   = "31"
	bold  = "1"
)

func (c console) paint(code, s string) string {
	if !c.color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (c console) status(ok bool, s string) string {
	if ok {
		return c.paint(green, s)
	}
	return c.paint(red, s)
}

func loadProfile() (*profile.Profile, error) {
	p, err := profile.Load(profilePath)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", profilePath, err)
	}
	return p, nil
}
