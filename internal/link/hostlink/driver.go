// Package hostlink drives a real host interface. Association is managed by
// the operating system; the driver watches the interface and reports the
// moment it carries an IPv4 address, and again when it loses it.
package hostlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/netclock/internal/netif"
	"github.com/turtacn/netclock/pkg/logger"
)

var (
	errNoLoop     = errors.New("driver not initialized")
	errNoSSID     = errors.New("ssid is required")
	errNoCreds    = errors.New("credentials not configured")
	errNotStarted = errors.New("driver not started")
	errNoIface    = errors.New("interface name is required")
	errIfaceDown  = errors.New("interface is down")
)

// LookupFunc returns the IPv4 addresses currently assigned to an interface.
type LookupFunc func(name string) ([]netip.Addr, error)

type Driver struct {
	iface   string
	lookup  LookupFunc
	limiter *rate.Limiter
	log     logger.Logger

	mu       sync.Mutex
	loop     netif.EventLoop
	creds    *netif.Credentials
	started  bool
	watching bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// New returns a driver probing iface at most once per probe interval.
func New(iface string, probe time.Duration) (*Driver, error) {
	if iface == "" {
		return nil, errNoIface
	}
	if probe <= 0 {
		probe = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Driver{
		iface:   iface,
		lookup:  InterfaceAddrs,
		limiter: rate.NewLimiter(rate.Every(probe), 1),
		log:     logger.Log.With("component", "hostlink", "iface", iface),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

func (d *Driver) Init(loop netif.EventLoop) error {
	if loop == nil {
		return errNoLoop
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loop = loop
	return nil
}

// SetCredentials records the network identity. The host supplicant owns the
// real association, so they are only kept for logging.
func (d *Driver) SetCredentials(c netif.Credentials) error {
	if c.SSID == "" {
		return errNoSSID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creds = &c
	return nil
}

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

// Connect starts a watcher unless one is already running.
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return errNotStarted
	}
	if d.watching {
		return nil
	}
	d.watching = true
	go d.watch(d.loop)
	return nil
}

// Close stops the watcher.
func (d *Driver) Close() {
	d.cancel()
}

func (d *Driver) watch(loop netif.EventLoop) {
	var current netip.Addr
	for {
		if err := d.limiter.Wait(d.ctx); err != nil {
			d.setWatching(false)
			return
		}
		addr, err := d.probe()
		switch {
		case err != nil:
			d.drop(loop, err.Error())
			return
		case !addr.IsValid() && current.IsValid():
			d.drop(loop, "address lost")
			return
		case addr.IsValid() && addr != current:
			if !current.IsValid() {
				loop.Post(netif.LinkEvent(netif.KindStationConnected))
			}
			current = addr
			loop.Post(netif.GotIP(addr))
		}
	}
}

// drop retires the watcher before reporting the disconnect, so a Connect
// issued in response starts a fresh one.
func (d *Driver) drop(loop netif.EventLoop, reason string) {
	d.setWatching(false)
	loop.Post(netif.Event{Category: netif.CategoryLink, Kind: netif.KindStationDisconnected, Reason: reason})
}

func (d *Driver) setWatching(v bool) {
	d.mu.Lock()
	d.watching = v
	d.mu.Unlock()
}

func (d *Driver) probe() (netip.Addr, error) {
	addrs, err := d.lookup(d.iface)
	if err != nil {
		return netip.Addr{}, err
	}
	if len(addrs) == 0 {
		return netip.Addr{}, nil
	}
	return addrs[0], nil
}

// InterfaceAddrs lists the IPv4 addresses of an up interface.
func InterfaceAddrs(name string) ([]netip.Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", name, err)
	}
	if ifi.Flags&net.FlagUp == 0 {
		return nil, errIfaceDown
	}
	raw, err := ifi.Addrs()
	if err != nil {
		return nil, fmt.Errorf("addrs %s: %w", name, err)
	}
	var out []netip.Addr
	for _, a := range raw {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		v4 := ipn.IP.To4()
		if v4 == nil {
			continue
		}
		if addr, ok := netip.AddrFromSlice(v4); ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

// Personal.AI order the ending
