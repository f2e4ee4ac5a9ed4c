// Package display renders the clock face once bring-up has produced an outcome.
package display

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/turtacn/netclock/internal/timesync"
	"github.com/turtacn/netclock/pkg/consts"
	"github.com/turtacn/netclock/pkg/logger"
)

// Face is the three labels of the clock: "HH:MM", "AM"/"PM" and "SS".
type Face struct {
	HourMinute string
	Meridiem   string
	Seconds    string
}

func (f Face) String() string {
	return fmt.Sprintf("%s %s :%s", f.HourMinute, f.Meridiem, f.Seconds)
}

// Format converts t to a 12-hour face. Midnight and noon both read 12.
func Format(t time.Time) Face {
	h := t.Hour()
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return Face{
		HourMinute: fmt.Sprintf("%02d:%02d", h, t.Minute()),
		Meridiem:   meridiem,
		Seconds:    fmt.Sprintf("%02d", t.Second()),
	}
}

// Renderer writes one face per refresh period.
type Renderer struct {
	w       io.Writer
	clock   timesync.Clock
	loc     *time.Location
	refresh time.Duration
	tick    func(time.Duration) (<-chan time.Time, func())
}

func NewRenderer(w io.Writer, clock timesync.Clock, loc *time.Location, refresh time.Duration) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	if refresh <= 0 {
		refresh = consts.DefaultRefreshPeriod
	}
	return &Renderer{
		w:       w,
		clock:   clock,
		loc:     loc,
		refresh: refresh,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Splash prints the boot line shown while the network comes up.
func (r *Renderer) Splash(line string) {
	if line == "" {
		return
	}
	fmt.Fprintln(r.w, line)
}

// Render consumes the bring-up outcome and draws the face until ctx is done.
func (r *Renderer) Render(ctx context.Context, out timesync.Outcome) error {
	if !out.Synced() {
		logger.Log.Warn("Rendering with unsynchronized clock", "state", string(out.State))
	}
	r.draw()

	c, stop := r.tick(r.refresh)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c:
			r.draw()
		}
	}
}

func (r *Renderer) draw() {
	fmt.Fprintf(r.w, "\r%s", Format(r.clock.Now().In(r.loc)))
}

// Personal.AI order the ending
