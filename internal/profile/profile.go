// Package profile loads host simulation profiles from YAML.
package profile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ystepanoff/stopwake/controller"
)

// Profile describes one simulated boot: the controller settings and the
// simulated oscillator behaviour.
type Profile struct {
	Name string `yaml:"name"`

	// Calendar is "YYYY-MM-DD HH:MM:SS", year 2000-2099.
	Calendar     string  `yaml:"calendar"`
	PrescalerA   *uint8  `yaml:"prescalerAsync"`
	PrescalerS   *uint16 `yaml:"prescalerSync"`
	WakeupReload *uint16 `yaml:"wakeupReload"`
	WakeupClock  string  `yaml:"wakeupClock"`

	Sleep struct {
		Mode              string `yaml:"mode"`
		LowPowerRegulator *bool  `yaml:"lowPowerRegulator"`
		FreezeOnDebug     *bool  `yaml:"freezeOnDebug"`
	} `yaml:"sleep"`

	Sim struct {
		LSIHz           uint64        `yaml:"lsiHz"`
		LSIStartupReads int           `yaml:"lsiStartupReads"`
		InitAckReads    int           `yaml:"initAckReads"`
		Duration        time.Duration `yaml:"duration"`
		// PollAttempts bounds ready polls. Zero polls without bound.
		PollAttempts int `yaml:"pollAttempts"`
	} `yaml:"sim"`
}

var clocks = map[string]controller.WakeupClock{
	"rtc/16":     controller.WakeupClockRTCDiv16,
	"rtc/8":      controller.WakeupClockRTCDiv8,
	"rtc/4":      controller.WakeupClockRTCDiv4,
	"rtc/2":      controller.WakeupClockRTCDiv2,
	"spre":       controller.WakeupClockSPRE,
	"spre+65536": controller.WakeupClockSPREExtended,
}

var modes = map[string]controller.SleepMode{
	"run":     controller.ModeRun,
	"stop":    controller.ModeStop,
	"standby": controller.ModeStandby,
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &p, nil
}

// Config overlays the profile on controller.DefaultConfig. Unset fields
// keep their defaults.
func (p *Profile) Config() (controller.Config, error) {
	cfg := controller.DefaultConfig()

	if p.Calendar != "" {
		t, err := time.Parse("2006-01-02 15:04:05", p.Calendar)
		if err != nil {
			return cfg, fmt.Errorf("%w: calendar %q: %v", controller.ErrInvalidConfig, p.Calendar, err)
		}
		if t.Year() < 2000 || t.Year() > 2099 {
			return cfg, fmt.Errorf("%w: calendar year %d outside 2000-2099", controller.ErrInvalidConfig, t.Year())
		}
		cfg.Calendar = controller.Calendar{
			Date: controller.Date{Year: uint8(t.Year() - 2000), Month: uint8(t.Month()), Day: uint8(t.Day())},
			Time: controller.Time{Hour: uint8(t.Hour()), Minute: uint8(t.Minute()), Second: uint8(t.Second())},
		}
	}
	if p.PrescalerA != nil {
		cfg.Prescaler.Async = *p.PrescalerA
	}
	if p.PrescalerS != nil {
		cfg.Prescaler.Sync = *p.PrescalerS
	}
	if p.WakeupReload != nil {
		cfg.WakeupReload = *p.WakeupReload
	}
	if p.WakeupClock != "" {
		c, ok := clocks[strings.ToLower(p.WakeupClock)]
		if !ok {
			return cfg, fmt.Errorf("%w: wakeup clock %q", controller.ErrInvalidConfig, p.WakeupClock)
		}
		cfg.WakeupClock = c
	}
	if p.Sleep.Mode != "" {
		m, ok := modes[strings.ToLower(p.Sleep.Mode)]
		if !ok {
			return cfg, fmt.Errorf("%w: sleep mode %q", controller.ErrInvalidConfig, p.Sleep.Mode)
		}
		cfg.Sleep.Mode = m
	}
	if p.Sleep.LowPowerRegulator != nil {
		cfg.Sleep.LowPowerRegulator = *p.Sleep.LowPowerRegulator
	}
	if p.Sleep.FreezeOnDebug != nil {
		cfg.Sleep.FreezeOnDebug = *p.Sleep.FreezeOnDebug
	}
	if p.Sim.PollAttempts > 0 {
		cfg.Poller = controller.Bounded{Attempts: p.Sim.PollAttempts}
	}
	return cfg, cfg.Validate()
}

// Duration is the simulated run length, 100 s when unset.
func (p *Profile) Duration() time.Duration {
	if p.Sim.Duration <= 0 {
		return 100 * time.Second
	}
	return p.Sim.Duration
}
