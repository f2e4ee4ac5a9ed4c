package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // devices often ship without zoneinfo

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/netclock/pkg/consts"
	nerrors "github.com/turtacn/netclock/pkg/errors"
	"github.com/turtacn/netclock/pkg/protocol"
)

// Defaults returns the configuration used for every field a file leaves empty.
func Defaults() protocol.Config {
	return protocol.Config{
		Version: "1",
		Device:  protocol.DeviceConfig{Name: "netclock", Hostname: "netclock"},
		Link: protocol.LinkConfig{
			Driver:        "sim",
			ProbeInterval: "1s",
			EventQueue:    consts.DefaultEventQueueSize,
			Sim: protocol.SimConfig{
				Address: "203.0.113.5",
				Latency: "200ms",
			},
		},
		TimeSync: protocol.TimeSyncConfig{
			Server:      consts.DefaultNTPServer,
			Mode:        "poll",
			Strategy:    "plausible",
			Clock:       "soft",
			MaxAttempts: consts.DefaultSyncAttempts,
			RetryDelay:  consts.DefaultSyncDelay.String(),
			MinYear:     consts.DefaultMinYear,
			Interval:    consts.DefaultNTPInterval.String(),
			RetryAfter:  consts.DefaultNTPRetry.String(),
			Timeout:     consts.DefaultNTPTimeout.String(),
		},
		Display: protocol.DisplayConfig{
			Mode:     "console",
			Timezone: consts.DefaultTimezone,
			Refresh:  consts.DefaultRefreshPeriod.String(),
		},
		Status: protocol.StatusConfig{SocketPath: "/tmp/netclock.sock"},
		Observability: protocol.ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

// Load reads a YAML file, fills unset fields from Defaults and validates the result.
func Load(path string) (*protocol.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nerrors.New(nerrors.ErrCodeConfigInvalid, "LoadConfig", "cannot read config file", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, applies defaults and validates.
func Parse(data []byte) (*protocol.Config, error) {
	var cfg protocol.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nerrors.New(nerrors.ErrCodeConfigInvalid, "LoadConfig", "cannot parse config file", err)
	}
	defaults := Defaults()
	if err := mergo.Merge(&cfg, defaults); err != nil {
		return nil, nerrors.New(nerrors.ErrCodeConfigInvalid, "LoadConfig", "cannot apply defaults", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the bring-up sequence cannot run with.
func Validate(cfg *protocol.Config) error {
	invalid := func(format string, args ...any) error {
		return nerrors.New(nerrors.ErrCodeConfigInvalid, "ValidateConfig", fmt.Sprintf(format, args...), nil)
	}

	if cfg.WiFi.SSID == "" {
		return invalid("wifi.ssid is required")
	}
	switch cfg.Link.Driver {
	case "sim":
	case "host":
		if cfg.Link.Interface == "" {
			return invalid("link.interface is required for the host driver")
		}
	default:
		return invalid("unknown link.driver %q", cfg.Link.Driver)
	}
	if cfg.Link.EventQueue < 1 {
		return invalid("link.event_queue must be positive")
	}

	ts := cfg.TimeSync
	if ts.MaxAttempts < 1 {
		return invalid("time_sync.max_attempts must be at least 1")
	}
	if ts.Mode != "poll" {
		return invalid("unsupported time_sync.mode %q", ts.Mode)
	}
	if ts.Strategy != "plausible" && ts.Strategy != "status" {
		return invalid("unknown time_sync.strategy %q", ts.Strategy)
	}
	if ts.Clock != "soft" && ts.Clock != "system" {
		return invalid("unknown time_sync.clock %q", ts.Clock)
	}

	durations := map[string]string{
		"wifi.connect_timeout":  cfg.WiFi.ConnectTimeout,
		"link.probe_interval":   cfg.Link.ProbeInterval,
		"link.sim.latency":      cfg.Link.Sim.Latency,
		"time_sync.retry_delay": ts.RetryDelay,
		"time_sync.interval":    ts.Interval,
		"time_sync.retry_after": ts.RetryAfter,
		"time_sync.timeout":     ts.Timeout,
		"display.refresh":       cfg.Display.Refresh,
	}
	for key, v := range durations {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			return invalid("%s: invalid duration %q", key, v)
		}
	}
	for _, h := range cfg.Hooks.OnReady {
		if len(h.Command) == 0 {
			return invalid("hook %q has no command", h.Name)
		}
	}

	if cfg.Display.Mode != "console" && cfg.Display.Mode != "none" {
		return invalid("unknown display.mode %q", cfg.Display.Mode)
	}
	if _, err := time.LoadLocation(cfg.Display.Timezone); err != nil {
		return nerrors.New(nerrors.ErrCodeConfigInvalid, "ValidateConfig", "unknown display.timezone", err)
	}
	return nil
}

// Personal.AI order the ending
