package timesync

import (
	"time"

	"github.com/turtacn/netclock/pkg/consts"
)

// Strategy decides whether a clock sample means time sync has completed.
type Strategy interface {
	Name() string
	Synced(local time.Time) bool
}

// PlausibleClock infers sync from the calendar year alone: a device clock that
// was never set reads its boot epoch, so any year at or past MinYear was set by
// someone. It does not consult the service.
type PlausibleClock struct {
	MinYear int
}

func (p PlausibleClock) Name() string { return "plausible" }

func (p PlausibleClock) Synced(local time.Time) bool {
	year := p.MinYear
	if year == 0 {
		year = consts.DefaultMinYear
	}
	return local.Year() >= year
}

// ServiceStatus asks the time-sync service directly.
type ServiceStatus struct {
	Reporter StatusReporter
}

func (s ServiceStatus) Name() string { return "status" }

func (s ServiceStatus) Synced(time.Time) bool {
	return s.Reporter != nil && s.Reporter.Synced()
}

// Personal.AI order the ending
