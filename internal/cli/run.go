package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/netclock/internal/display"
	"github.com/turtacn/netclock/internal/link/hostlink"
	"github.com/turtacn/netclock/internal/link/simlink"
	"github.com/turtacn/netclock/internal/monitor"
	"github.com/turtacn/netclock/internal/netif"
	"github.com/turtacn/netclock/internal/netstack"
	"github.com/turtacn/netclock/internal/orchestrator"
	"github.com/turtacn/netclock/internal/resource"
	"github.com/turtacn/netclock/internal/status"
	"github.com/turtacn/netclock/internal/supervisor"
	"github.com/turtacn/netclock/internal/timesync"
	"github.com/turtacn/netclock/pkg/logger"
	"github.com/turtacn/netclock/pkg/protocol"
)

// Run wires the runtime from cfg and blocks until ctx is done or bring-up fails.
// The clock face, when enabled, is written to out.
func Run(ctx context.Context, cfg *protocol.Config, out io.Writer) error {
	bootID := uuid.NewString()
	logger.Log = logger.Log.With("boot_id", bootID)
	logger.Log.Info("Booting netclock...", "device", cfg.Device.Name, "driver", cfg.Link.Driver)

	listeners := resource.NewListenerSet()
	defer listeners.Close()
	if cfg.Observability.MetricsAddr != "" {
		l, err := listeners.Ensure("tcp", cfg.Observability.MetricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		monitor.InitMetrics(l)
	}
	var statusL net.Listener
	if cfg.Status.SocketPath != "" {
		var err error
		if statusL, err = listeners.Ensure("unix", cfg.Status.SocketPath); err != nil {
			return fmt.Errorf("status listener: %w", err)
		}
	}

	loc, err := time.LoadLocation(cfg.Display.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Display.Timezone, err)
	}

	clock, adjuster := buildClock(cfg)
	ntpSvc := timesync.NewNTPService(adjuster, timesync.NTPConfig{
		Interval:   cfg.TimeSync.IntervalDuration(),
		RetryAfter: cfg.TimeSync.RetryAfterDuration(),
		Timeout:    cfg.TimeSync.TimeoutDuration(),
	})
	defer ntpSvc.Stop()

	stack := netstack.New(cfg.Link.EventQueue)
	defer stack.Close()

	link, closeLink, err := buildLink(cfg)
	if err != nil {
		return err
	}
	defer closeLink()

	engine := orchestrator.NewEngine(cfg, orchestrator.Deps{
		Stack:    stack,
		Link:     link,
		TimeSync: ntpSvc,
		Clock:    clock,
		Reporter: ntpSvc,
		Location: loc,
	})

	renderer := display.NewRenderer(out, clock, loc, cfg.Display.RefreshDuration())
	if cfg.Display.Mode == "console" {
		renderer.Splash(cfg.Display.Splash)
	}

	g, gctx := errgroup.WithContext(ctx)
	if statusL != nil {
		srv := status.NewServer(cfg.Status.SocketPath, func() protocol.Snapshot {
			snap := engine.Snapshot()
			snap.BootID = bootID
			return snap
		})
		g.Go(func() error { return srv.ServeListener(gctx, statusL) })
	}

	g.Go(func() error {
		outcome, err := engine.Run(gctx)
		if err != nil {
			return err
		}

		var addr netip.Addr
		if src := engine.Source(); src != nil {
			addr = src.Address()
		}
		// Hook failures are reported and do not stop the clock.
		supervisor.New(cfg.Hooks.OnReady).RunReady(gctx, outcome, addr)

		if cfg.Display.Mode != "console" {
			<-gctx.Done()
			return nil
		}
		return renderer.Render(gctx, outcome)
	})

	return g.Wait()
}

func buildClock(cfg *protocol.Config) (timesync.Clock, timesync.Setter) {
	if cfg.TimeSync.Clock == "system" {
		return timesync.SystemClock{}, nil
	}
	// A device clock without a battery-backed RTC starts at the epoch.
	soft := timesync.NewSoftClock(time.Unix(0, 0).UTC())
	return soft, soft
}

func buildLink(cfg *protocol.Config) (netif.Link, func(), error) {
	switch cfg.Link.Driver {
	case "host":
		d, err := hostlink.New(cfg.Link.Interface, protocol.ParseDuration(cfg.Link.ProbeInterval, time.Second))
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		script := simlink.Script{
			Disconnects: cfg.Link.Sim.Disconnects,
			Latency:     protocol.ParseDuration(cfg.Link.Sim.Latency, 0),
		}
		if cfg.Link.Sim.Address != "" {
			addr, err := netip.ParseAddr(cfg.Link.Sim.Address)
			if err != nil {
				return nil, nil, fmt.Errorf("link.sim.address: %w", err)
			}
			script.Address = addr
		}
		return simlink.New(script), func() {}, nil
	}
}

// Personal.AI order the ending
