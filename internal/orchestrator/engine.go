package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/turtacn/netclock/internal/monitor"
	"github.com/turtacn/netclock/internal/netif"
	"github.com/turtacn/netclock/internal/netup"
	"github.com/turtacn/netclock/internal/timesync"
	"github.com/turtacn/netclock/pkg/consts"
	nerrors "github.com/turtacn/netclock/pkg/errors"
	"github.com/turtacn/netclock/pkg/fsm"
	"github.com/turtacn/netclock/pkg/logger"
	"github.com/turtacn/netclock/pkg/protocol"
)

const (
	evInit  fsm.Event = "init"
	evWait  fsm.Event = "wait"
	evSync  fsm.Event = "sync"
	evReady fsm.Event = "ready"
	evFail  fsm.Event = "fail"
)

var errAlreadyRan = errors.New("bring-up already ran")

// Deps are the platform collaborators the engine drives.
type Deps struct {
	// Stack is closed when bring-up fails, if it has a Close method.
	Stack    netif.Stack
	Link     netif.Link
	TimeSync timesync.Service
	Clock    timesync.Clock
	// Reporter backs the "status" strategy.
	Reporter timesync.StatusReporter
	// Location is the timezone samples are checked in. Defaults to time.Local.
	Location *time.Location
	// PollerOptions are appended after the options derived from config.
	PollerOptions []timesync.Option
}

// Engine runs the bring-up sequence: network stack, station, event source,
// link start, the wait for an address, then the time-sync poll.
type Engine struct {
	cfg  *protocol.Config
	deps Deps
	fsm  *fsm.StateMachine
	log  logger.Logger

	mu      sync.RWMutex
	signal  *netup.Signal
	source  *netup.Source
	outcome *timesync.Outcome
	err     error
}

func NewEngine(cfg *protocol.Config, deps Deps) *Engine {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	e := &Engine{
		cfg:  cfg,
		deps: deps,
		fsm:  fsm.New(fsm.State(consts.PhaseIdle)),
		log:  logger.Log.With("component", "orchestrator"),
	}
	e.setupFSM()
	return e
}

func (e *Engine) setupFSM() {
	idle := fsm.State(consts.PhaseIdle)
	initializing := fsm.State(consts.PhaseInitializing)
	waiting := fsm.State(consts.PhaseWaitingForIP)
	syncing := fsm.State(consts.PhaseSyncing)
	failed := fsm.State(consts.PhaseFailed)

	e.fsm.AddTransition(idle, initializing, evInit, nil)
	e.fsm.AddTransition(initializing, waiting, evWait, nil)
	e.fsm.AddTransition(waiting, syncing, evSync, nil)
	e.fsm.AddTransition(syncing, fsm.State(consts.PhaseReady), evReady, nil)

	e.fsm.AddTransition(idle, failed, evFail, nil)
	e.fsm.AddTransition(initializing, failed, evFail, nil)
	e.fsm.AddTransition(waiting, failed, evFail, nil)

	e.fsm.OnTransition(func(from, to fsm.State, _ fsm.Event) {
		e.log.Debug("Phase changed", "from", string(from), "to", string(to))
	})
}

// BringUp returns once the connection signal is observed. Every failing step
// returns a coded error and leaves the engine FAILED.
func (e *Engine) BringUp(ctx context.Context) error {
	if err := e.fsm.Fire(evInit); err != nil {
		return errAlreadyRan
	}
	started := time.Now()

	if err := e.deps.Stack.Init(); err != nil {
		return e.fail(nerrors.ErrCodeStackInit, "InitStack", "initialize network stack", err)
	}
	loop, err := e.deps.Stack.CreateDefaultEventLoop()
	if err != nil {
		return e.fail(nerrors.ErrCodeEventLoop, "CreateEventLoop", "create default event loop", err)
	}
	if err := e.deps.Stack.CreateDefaultStation(); err != nil {
		return e.fail(nerrors.ErrCodeStation, "CreateStation", "create default station", err)
	}
	if err := e.deps.Link.Init(loop); err != nil {
		return e.fail(nerrors.ErrCodeLinkInit, "InitLink", "initialize link driver", err)
	}

	sig := netup.NewSignal()
	src := netup.NewSource(e.deps.Link, sig, e.deps.TimeSync, netup.TimeSyncConfig{
		Mode:   timesync.Mode(e.cfg.TimeSync.Mode),
		Server: e.cfg.TimeSync.Server,
	})
	if err := src.Register(loop); err != nil {
		return e.fail(nerrors.ErrCodeRegister, "RegisterHandlers", "register event handlers", err)
	}
	e.mu.Lock()
	e.signal, e.source = sig, src
	e.mu.Unlock()

	creds := netif.Credentials{
		SSID:     e.cfg.WiFi.SSID,
		Password: e.cfg.WiFi.Password,
		Hostname: e.cfg.Device.Hostname,
	}
	if err := e.deps.Link.SetCredentials(creds); err != nil {
		return e.fail(nerrors.ErrCodeCredentials, "SetCredentials", "configure station credentials", err)
	}
	if err := e.deps.Link.Start(); err != nil {
		return e.fail(nerrors.ErrCodeLinkStart, "StartLink", "start link", err)
	}

	e.fsm.Fire(evWait)
	e.log.Info("Waiting for Wi-Fi connection...", "ssid", creds.SSID)
	if res := e.wait(ctx, sig); res != netup.SignalObserved {
		cause := ctx.Err()
		if cause == nil {
			cause = context.DeadlineExceeded
		}
		return e.fail(nerrors.ErrCodeConnectTimeout, "WaitConnection", "no address acquired", cause)
	}

	monitor.BringUpDuration.Observe(time.Since(started).Seconds())
	e.log.Info("Wi-Fi connected", "addr", src.Address().String(), "elapsed", time.Since(started).String())
	return nil
}

func (e *Engine) wait(ctx context.Context, sig *netup.Signal) netup.WaitResult {
	if d := e.cfg.WiFi.ConnectWait(); d != consts.WaitForever {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return sig.WaitContext(ctx)
}

// Run brings the network up and then polls for time sync. The outcome is
// returned whether or not the clock converged.
func (e *Engine) Run(ctx context.Context) (timesync.Outcome, error) {
	if err := e.BringUp(ctx); err != nil {
		return timesync.Outcome{}, err
	}

	e.fsm.Fire(evSync)
	out := e.poller().Run(ctx)

	e.mu.Lock()
	e.outcome = &out
	e.mu.Unlock()
	e.fsm.Fire(evReady)
	return out, nil
}

func (e *Engine) poller() *timesync.Poller {
	ts := e.cfg.TimeSync
	budget := timesync.RetryBudget{MaxAttempts: ts.MaxAttempts, Delay: ts.RetryDelayDuration()}
	if budget.MaxAttempts == 0 {
		budget.MaxAttempts = consts.DefaultSyncAttempts
	}

	var strategy timesync.Strategy = timesync.PlausibleClock{MinYear: ts.MinYear}
	if ts.Strategy == "status" && e.deps.Reporter != nil {
		strategy = timesync.ServiceStatus{Reporter: e.deps.Reporter}
	}

	opts := []timesync.Option{
		timesync.WithLocation(e.deps.Location),
		timesync.WithStrategy(strategy),
	}
	return timesync.NewPoller(e.deps.Clock, budget, append(opts, e.deps.PollerOptions...)...)
}

func (e *Engine) fail(code nerrors.ErrorCode, op, msg string, cause error) error {
	err := nerrors.New(code, op, msg, cause)
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	e.fsm.Fire(evFail)
	e.log.Error("Bring-up failed", "err", err)
	if c, ok := e.deps.Stack.(interface{ Close() }); ok {
		c.Close()
	}
	return err
}

// Phase returns the current bring-up phase.
func (e *Engine) Phase() consts.Phase {
	return consts.Phase(e.fsm.Current())
}

// Source returns the event source, nil before registration.
func (e *Engine) Source() *netup.Source {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.source
}

// Signal returns the connection signal, nil before registration.
func (e *Engine) Signal() *netup.Signal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.signal
}

// Snapshot reports the engine state for the status endpoint.
func (e *Engine) Snapshot() protocol.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := protocol.Snapshot{
		Device: e.cfg.Device.Name,
		Phase:  string(e.Phase()),
		Link:   string(consts.LinkDown),
	}
	if e.source != nil {
		snap.Link = string(e.source.State())
		if addr := e.source.Address(); addr.IsValid() {
			snap.Address = addr.String()
		}
	}
	if e.signal != nil {
		snap.Signal = e.signal.IsSet()
	}
	if e.outcome != nil {
		snap.Sync = string(e.outcome.State)
		snap.Attempts = e.outcome.Attempts
		snap.SyncTime = e.outcome.Time.Format(timesync.TimestampLayout)
	}
	if e.err != nil {
		snap.Error = e.err.Error()
	}
	return snap
}

// Personal.AI order the ending
