// Package timesync waits for the wall clock to become trustworthy after the
// network is up, and provides the NTP service and clocks it samples.
package timesync

import (
	"sync"
	"time"
)

// Mode is the time-sync service operating mode.
type Mode string

const (
	ModePoll   Mode = "poll"   // Actively query configured servers
	ModeListen Mode = "listen" // Wait for broadcast updates
)

// MaxServers is the number of server slots a Service exposes.
const MaxServers = 3

// Service is the time-sync collaborator configured once an address is assigned.
// Start must return promptly; querying happens in the background.
type Service interface {
	SetOperatingMode(m Mode)
	SetServerName(idx int, name string) error
	Start() error
}

// StatusReporter is implemented by services that can tell whether they synced.
type StatusReporter interface {
	Synced() bool
}

// Clock reads calendar time.
type Clock interface {
	Now() time.Time
}

// Setter is a clock the time-sync service can correct. NTP offsets are
// relative to the host clock, so the service hands over an absolute time.
type Setter interface {
	Set(t time.Time)
}

// SystemClock reads the host clock. The host keeps it synchronized itself.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SoftClock is a device clock that starts at a boot epoch and advances with
// the monotonic clock until the time-sync service corrects it.
type SoftClock struct {
	mu     sync.RWMutex
	base   time.Time
	anchor time.Time
	since  func(time.Time) time.Duration
}

// NewSoftClock returns a clock reading boot now.
func NewSoftClock(boot time.Time) *SoftClock {
	return &SoftClock{base: boot, anchor: time.Now(), since: time.Since}
}

func (c *SoftClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.Add(c.since(c.anchor))
}

// Set moves the clock to t.
func (c *SoftClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = t
	c.anchor = time.Now()
}

// Personal.AI order the ending
