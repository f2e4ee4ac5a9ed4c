package monitor

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/turtacn/netclock/pkg/logger"
)

var (
	// LinkEvents counts notifications handled by the connectivity event source, by kind.
	LinkEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netclock_link_events_total",
		Help: "Link and address notifications handled",
	}, []string{"kind"})
	// Reconnects counts reconnect requests issued to the link driver, by result.
	Reconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netclock_reconnect_requests_total",
		Help: "Reconnect requests issued to the link driver",
	}, []string{"result"})
	// EventsDropped counts notifications dropped because the event queue was full.
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netclock_events_dropped_total",
		Help: "Notifications dropped on a full event queue",
	})
	// ConnectionSignal is 1 once an address has been acquired.
	ConnectionSignal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netclock_connection_signal",
		Help: "Whether the connection signal has been set",
	})
	// BringUpDuration tracks the time from stack init until the connection signal.
	BringUpDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netclock_bringup_duration_seconds",
		Help:    "Time from stack init until an address was acquired",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	// SyncAttempts counts clock samples taken by the time-sync poller.
	SyncAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netclock_sync_attempts_total",
		Help: "Clock samples taken while waiting for time sync",
	})
	// SyncOutcome is 1 for the terminal state of the last poll session.
	SyncOutcome = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netclock_sync_outcome",
		Help: "Terminal state of the last time-sync poll",
	}, []string{"state"})
	// NTPQueries counts NTP queries, by result.
	NTPQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netclock_ntp_queries_total",
		Help: "NTP queries issued by the time-sync service",
	}, []string{"result"})
	// NTPOffset is the last clock offset applied, in seconds.
	NTPOffset = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netclock_ntp_offset_seconds",
		Help: "Last clock offset reported by the NTP server",
	})
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			LinkEvents,
			Reconnects,
			EventsDropped,
			ConnectionSignal,
			BringUpDuration,
			SyncAttempts,
			SyncOutcome,
			NTPQueries,
			NTPOffset,
		)
	})
}

// InitMetrics registers Prometheus metrics and serves them at /metrics on l.
func InitMetrics(l net.Listener) {
	Register()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Log.Info("Metrics server starting", "addr", l.Addr().String())
		if err := http.Serve(l, mux); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Log.Error("Metrics server failed", "err", err)
		}
	}()
}

// Personal.AI order the ending
