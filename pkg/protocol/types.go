package protocol

import (
	"time"

	"github.com/turtacn/netclock/pkg/consts"
)

// Config represents the root netclock configuration
type Config struct {
	Version       string              `yaml:"version"`
	Device        DeviceConfig        `yaml:"device"`
	WiFi          WiFiConfig          `yaml:"wifi"`
	Link          LinkConfig          `yaml:"link"`
	TimeSync      TimeSyncConfig      `yaml:"time_sync"`
	Display       DisplayConfig       `yaml:"display"`
	Hooks         HooksConfig         `yaml:"hooks"`
	Status        StatusConfig        `yaml:"status"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type DeviceConfig struct {
	Name     string `yaml:"name"`
	Hostname string `yaml:"hostname"` // Requested from DHCP where the driver supports it
}

type WiFiConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	// ConnectTimeout bounds the wait for an address. Empty or "0" waits forever.
	ConnectTimeout string `yaml:"connect_timeout"`
}

type LinkConfig struct {
	Driver        string    `yaml:"driver"`         // "sim" or "host"
	Interface     string    `yaml:"interface"`      // host: interface to watch
	ProbeInterval string    `yaml:"probe_interval"` // host: address probe pacing
	EventQueue    int       `yaml:"event_queue"`    // event loop buffer
	Sim           SimConfig `yaml:"sim"`
}

// SimConfig scripts the simulated station.
type SimConfig struct {
	Address     string `yaml:"address"`
	Disconnects int    `yaml:"disconnects"` // Drops before the address is granted
	Latency     string `yaml:"latency"`
}

type TimeSyncConfig struct {
	Server      string `yaml:"server"`
	Mode        string `yaml:"mode"`     // "poll" or "listen"
	Strategy    string `yaml:"strategy"` // "plausible" or "status"
	Clock       string `yaml:"clock"`    // "soft" or "system"
	MaxAttempts int    `yaml:"max_attempts"`
	RetryDelay  string `yaml:"retry_delay"`
	MinYear     int    `yaml:"min_year"`
	Interval    string `yaml:"interval"`    // NTP poll interval after a successful sync
	RetryAfter  string `yaml:"retry_after"` // NTP retry after a failed query
	Timeout     string `yaml:"timeout"`     // Per-query timeout
}

type DisplayConfig struct {
	Mode     string `yaml:"mode"` // "console" or "none"
	Timezone string `yaml:"timezone"`
	Refresh  string `yaml:"refresh"`
	Splash   string `yaml:"splash"`
}

type HooksConfig struct {
	OnReady []Hook `yaml:"on_ready"`
}

type Hook struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	Timeout string   `yaml:"timeout"`
}

type StatusConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Snapshot is the status endpoint payload.
type Snapshot struct {
	Device   string `json:"device"`
	BootID   string `json:"boot_id,omitempty"`
	Phase    string `json:"phase"`
	Link     string `json:"link"`
	Signal   bool   `json:"signal"`
	Address  string `json:"address,omitempty"`
	Sync     string `json:"sync,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	SyncTime string `json:"sync_time,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ParseDuration returns def when s is empty or unparsable.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// ConnectWait returns the signal wait bound, consts.WaitForever when unset.
func (c WiFiConfig) ConnectWait() time.Duration {
	d := ParseDuration(c.ConnectTimeout, 0)
	if d <= 0 {
		return consts.WaitForever
	}
	return d
}

func (c TimeSyncConfig) RetryDelayDuration() time.Duration {
	return ParseDuration(c.RetryDelay, consts.DefaultSyncDelay)
}

func (c TimeSyncConfig) IntervalDuration() time.Duration {
	return ParseDuration(c.Interval, consts.DefaultNTPInterval)
}

func (c TimeSyncConfig) RetryAfterDuration() time.Duration {
	return ParseDuration(c.RetryAfter, consts.DefaultNTPRetry)
}

func (c TimeSyncConfig) TimeoutDuration() time.Duration {
	return ParseDuration(c.Timeout, consts.DefaultNTPTimeout)
}

func (c DisplayConfig) RefreshDuration() time.Duration {
	return ParseDuration(c.Refresh, consts.DefaultRefreshPeriod)
}

// Personal.AI order the ending
