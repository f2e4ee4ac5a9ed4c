// Package simlink is a scripted station driver. It behaves like a radio that
// drops a configured number of association attempts before an address is
// granted, and is used for bench runs and tests.
package simlink

import (
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/turtacn/netclock/internal/netif"
	"github.com/turtacn/netclock/pkg/logger"
)

var (
	errNoLoop      = errors.New("driver not initialized")
	errNoSSID      = errors.New("ssid is required")
	errNoCreds     = errors.New("credentials not configured")
	errNotStarted  = errors.New("driver not started")
	errAlreadyInit = errors.New("driver already initialized")
)

// Script describes how the simulated access point answers.
type Script struct {
	// Address is granted once Disconnects drops have happened. An invalid
	// address means DHCP never answers.
	Address netip.Addr
	// Disconnects is the number of association attempts that fail first.
	Disconnects int
	// Latency is the delay before each attempt resolves.
	Latency time.Duration
}

type Driver struct {
	mu       sync.Mutex
	script   Script
	loop     netif.EventLoop
	creds    *netif.Credentials
	started  bool
	drops    int
	connects int
	after    func(time.Duration, func())
	log      logger.Logger
}

func New(script Script) *Driver {
	return &Driver{
		script: script,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		log: logger.Log.With("component", "simlink"),
	}
}

func (d *Driver) Init(loop netif.EventLoop) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if loop == nil {
		return errNoLoop
	}
	if d.loop != nil {
		return errAlreadyInit
	}
	d.loop = loop
	return nil
}

func (d *Driver) SetCredentials(c netif.Credentials) error {
	if c.SSID == "" {
		return errNoSSID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creds = &c
	return nil
}

// Start posts STA_START.
func (d *Driver) Start() error {
	d.mu.Lock()
	if d.loop == nil {
		d.mu.Unlock()
		return errNoLoop
	}
	if d.creds == nil {
		d.mu.Unlock()
		return errNoCreds
	}
	d.started = true
	loop, ssid := d.loop, d.creds.SSID
	d.mu.Unlock()

	d.log.Info("Station started", "ssid", ssid)
	loop.Post(netif.LinkEvent(netif.KindStationStart))
	return nil
}

// Connect schedules one association attempt and returns immediately. The
// attempt may resolve inline, so the lock is released before scheduling.
func (d *Driver) Connect() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return errNotStarted
	}
	d.connects++
	latency := d.script.Latency
	d.mu.Unlock()

	d.after(latency, d.resolve)
	return nil
}

// Connects returns the number of association attempts requested so far.
func (d *Driver) Connects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

func (d *Driver) resolve() {
	d.mu.Lock()
	drop := d.drops < d.script.Disconnects
	if drop {
		d.drops++
	}
	loop, addr := d.loop, d.script.Address
	d.mu.Unlock()

	if drop {
		loop.Post(netif.Event{
			Category: netif.CategoryLink,
			Kind:     netif.KindStationDisconnected,
			Reason:   "association timed out",
		})
		return
	}
	loop.Post(netif.LinkEvent(netif.KindStationConnected))
	if addr.IsValid() {
		loop.Post(netif.GotIP(addr))
	}
}

// Personal.AI order the ending
