package netup

import (
	"net/netip"
	"sync"

	"github.com/turtacn/netclock/internal/monitor"
	"github.com/turtacn/netclock/internal/netif"
	"github.com/turtacn/netclock/internal/timesync"
	"github.com/turtacn/netclock/pkg/consts"
	nerrors "github.com/turtacn/netclock/pkg/errors"
	"github.com/turtacn/netclock/pkg/fsm"
	"github.com/turtacn/netclock/pkg/logger"
)

const (
	evStart        fsm.Event = "start"
	evDisconnected fsm.Event = "disconnected"
	evGotIP        fsm.Event = "got_ip"
)

// TimeSyncConfig is applied to the time-sync service when the first address arrives.
type TimeSyncConfig struct {
	Mode   timesync.Mode
	Server string
}

// Source reacts to link and address notifications. It reconnects the link on
// every start or drop and, on the first address, sets the connection signal
// and starts time sync. HandleEvent never blocks.
type Source struct {
	link   netif.Link
	signal *Signal
	sync   timesync.Service
	tsCfg  TimeSyncConfig
	fsm    *fsm.StateMachine
	log    logger.Logger

	mu   sync.RWMutex
	addr netip.Addr
}

func NewSource(link netif.Link, signal *Signal, svc timesync.Service, cfg TimeSyncConfig) *Source {
	if cfg.Mode == "" {
		cfg.Mode = timesync.ModePoll
	}
	if cfg.Server == "" {
		cfg.Server = consts.DefaultNTPServer
	}
	s := &Source{
		link:   link,
		signal: signal,
		sync:   svc,
		tsCfg:  cfg,
		fsm:    fsm.New(fsm.State(consts.LinkDown)),
		log:    logger.Log.With("component", "event_source"),
	}
	s.setupFSM()
	return s
}

func (s *Source) setupFSM() {
	down := fsm.State(consts.LinkDown)
	starting := fsm.State(consts.LinkStarting)
	connected := fsm.State(consts.LinkConnected)
	disconnected := fsm.State(consts.LinkDisconnected)

	s.fsm.AddTransition(down, starting, evStart, nil)
	s.fsm.AddTransition(starting, starting, evStart, nil)
	s.fsm.AddTransition(disconnected, starting, evStart, nil)
	s.fsm.AddTransition(connected, starting, evStart, nil)

	s.fsm.AddTransition(starting, disconnected, evDisconnected, nil)
	s.fsm.AddTransition(connected, disconnected, evDisconnected, nil)
	s.fsm.AddTransition(disconnected, disconnected, evDisconnected, nil)

	s.fsm.AddTransition(starting, connected, evGotIP, nil)
	s.fsm.AddTransition(disconnected, connected, evGotIP, nil)
	s.fsm.AddTransition(connected, connected, evGotIP, nil)

	s.fsm.OnTransition(func(from, to fsm.State, event fsm.Event) {
		if from != to {
			s.log.Debug("Link state changed", "from", string(from), "to", string(to), "event", string(event))
		}
	})
}

// Register subscribes the source to every link event and to address acquisition.
func (s *Source) Register(loop netif.EventLoop) error {
	if err := loop.Register(netif.CategoryLink, netif.KindAny, s.HandleEvent); err != nil {
		return err
	}
	return loop.Register(netif.CategoryAddress, netif.KindStationGotIP, s.HandleEvent)
}

// HandleEvent is the notification entry point. Safe for concurrent use.
func (s *Source) HandleEvent(ev netif.Event) {
	switch {
	case ev.Category == netif.CategoryLink && ev.Kind == netif.KindStationStart:
		s.count(ev)
		s.transition(evStart, ev)
		s.reconnect()

	case ev.Category == netif.CategoryLink && ev.Kind == netif.KindStationDisconnected:
		s.count(ev)
		s.transition(evDisconnected, ev)
		s.log.Info("Wi-Fi disconnected, retrying...", "reason", ev.Reason)
		s.reconnect()

	case ev.Category == netif.CategoryAddress && ev.Kind == netif.KindStationGotIP:
		s.count(ev)
		s.onGotIP(ev)

	default:
		s.log.Debug("Ignoring event", "event", ev.String())
	}
}

// State returns the current link state.
func (s *Source) State() consts.LinkState {
	return consts.LinkState(s.fsm.Current())
}

// Address returns the last acquired address, invalid before the first one.
func (s *Source) Address() netip.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Source) onGotIP(ev netif.Event) {
	s.transition(evGotIP, ev)
	s.mu.Lock()
	s.addr = ev.Addr
	s.mu.Unlock()
	s.log.Info("Got IP", "addr", ev.Addr.String())

	if !s.signal.Set() {
		return
	}
	monitor.ConnectionSignal.Set(1)

	// Name resolution is only available from here on.
	s.log.Info("Starting time sync", "server", s.tsCfg.Server, "mode", string(s.tsCfg.Mode))
	s.sync.SetOperatingMode(s.tsCfg.Mode)
	if err := s.sync.SetServerName(0, s.tsCfg.Server); err != nil {
		s.log.Error("Time sync configuration failed",
			"err", nerrors.New(nerrors.ErrCodeTimeSyncStart, "StartTimeSync", "set server name", err))
		return
	}
	if err := s.sync.Start(); err != nil {
		s.log.Error("Time sync start failed",
			"err", nerrors.New(nerrors.ErrCodeTimeSyncStart, "StartTimeSync", "start service", err))
	}
}

func (s *Source) reconnect() {
	if err := s.link.Connect(); err != nil {
		// A later disconnect notification retries.
		monitor.Reconnects.WithLabelValues("error").Inc()
		s.log.Warn("Reconnect request failed", "err", err)
		return
	}
	monitor.Reconnects.WithLabelValues("ok").Inc()
}

func (s *Source) transition(e fsm.Event, ev netif.Event) {
	if err := s.fsm.Fire(e); err != nil {
		s.log.Warn("Unexpected event for link state", "event", ev.String(), "state", string(s.fsm.Current()))
	}
}

func (s *Source) count(ev netif.Event) {
	monitor.LinkEvents.WithLabelValues(string(ev.Kind)).Inc()
}

// Personal.AI order the ending
