package timesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"

	"github.com/turtacn/netclock/internal/monitor"
	"github.com/turtacn/netclock/pkg/consts"
	"github.com/turtacn/netclock/pkg/logger"
)

var (
	errAlreadyStarted    = errors.New("time sync already started")
	errNoServer          = errors.New("no time server configured")
	errListenUnsupported = errors.New("listen mode is not supported by the NTP client")
)

type queryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTPConfig tunes the NTP service schedule.
type NTPConfig struct {
	Interval   time.Duration // Between successful queries
	RetryAfter time.Duration // After a round where every server failed
	Timeout    time.Duration // Per query
}

// NTPService queries NTP servers in the background and corrects a Setter.
// Servers are tried in slot order each round; the first valid answer wins.
type NTPService struct {
	mu      sync.Mutex
	mode    Mode
	servers [MaxServers]string
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	clock  Setter
	now    func() time.Time
	cfg    NTPConfig
	query  queryFunc
	synced atomic.Bool
	last   atomic.Int64 // unix nanos of the last successful query
	log    logger.Logger
}

// NewNTPService creates a poll-mode service. clock may be nil when the host
// keeps the system clock itself; the service then only tracks sync status.
func NewNTPService(clock Setter, cfg NTPConfig) *NTPService {
	if cfg.Interval <= 0 {
		cfg.Interval = consts.DefaultNTPInterval
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = consts.DefaultNTPRetry
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = consts.DefaultNTPTimeout
	}
	return &NTPService{
		mode:  ModePoll,
		clock: clock,
		cfg:   cfg,
		query: ntp.QueryWithOptions,
		now:   time.Now,
		log:   logger.Log.With("component", "ntp"),
	}
}

func (s *NTPService) SetOperatingMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

func (s *NTPService) SetServerName(idx int, name string) error {
	if idx < 0 || idx >= MaxServers {
		return fmt.Errorf("server index %d out of range [0,%d)", idx, MaxServers)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[idx] = name
	return nil
}

// Start launches the query loop and returns immediately.
func (s *NTPService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyStarted
	}
	if s.mode == ModeListen {
		return errListenUnsupported
	}
	var servers []string
	for _, name := range s.servers {
		if name != "" {
			servers = append(servers, name)
		}
	}
	if len(servers) == 0 {
		return errNoServer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.started = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, servers)
	s.log.Info("Time sync started", "servers", servers, "mode", string(s.mode))
	return nil
}

// Stop ends the query loop and waits for it to exit.
func (s *NTPService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Synced reports whether at least one query has succeeded.
func (s *NTPService) Synced() bool {
	return s.synced.Load()
}

// LastSync returns the time of the last successful query, zero if none.
func (s *NTPService) LastSync() time.Time {
	n := s.last.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *NTPService) run(ctx context.Context, servers []string) {
	defer close(s.done)
	for {
		wait := s.cfg.RetryAfter
		if s.round(servers) {
			wait = s.cfg.Interval
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// round queries servers in order and applies the first valid response.
func (s *NTPService) round(servers []string) bool {
	for _, host := range servers {
		resp, err := s.query(host, ntp.QueryOptions{Timeout: s.cfg.Timeout})
		if err == nil {
			err = resp.Validate()
		}
		if err != nil {
			monitor.NTPQueries.WithLabelValues("error").Inc()
			s.log.Warn("NTP query failed", "server", host, "err", err)
			continue
		}

		monitor.NTPQueries.WithLabelValues("ok").Inc()
		monitor.NTPOffset.Set(resp.ClockOffset.Seconds())
		if s.clock != nil {
			s.clock.Set(s.now().Add(resp.ClockOffset))
		}
		s.last.Store(time.Now().UnixNano())
		if !s.synced.Swap(true) {
			s.log.Info("Time synchronized", "server", host, "offset", resp.ClockOffset.String())
		} else {
			s.log.Debug("Time refreshed", "server", host, "offset", resp.ClockOffset.String())
		}
		return true
	}
	return false
}

// Personal.AI order the ending
