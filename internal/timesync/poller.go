package timesync

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/turtacn/netclock/internal/monitor"
	"github.com/turtacn/netclock/pkg/consts"
	"github.com/turtacn/netclock/pkg/fsm"
	"github.com/turtacn/netclock/pkg/logger"
)

// TimestampLayout is how a resolved sync time is logged and reported.
const TimestampLayout = "2006-01-02 15:04:05"

var errNotSynced = errors.New("system time not set")

// RetryBudget bounds a poll session.
type RetryBudget struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultBudget is 10 samples, 2s apart.
func DefaultBudget() RetryBudget {
	return RetryBudget{MaxAttempts: consts.DefaultSyncAttempts, Delay: consts.DefaultSyncDelay}
}

// Outcome is the terminal result of a poll session.
type Outcome struct {
	State    consts.SyncState
	Attempts int
	// Time is the local time of the last sample.
	Time time.Time
}

// Synced reports whether the session ended in the SYNCED state.
func (o Outcome) Synced() bool { return o.State == consts.SyncSynced }

// Poller samples a clock until a Strategy accepts it or the budget is spent.
// An exhausted budget is not an error: callers proceed with the clock they have.
type Poller struct {
	clock    Clock
	loc      *time.Location
	budget   RetryBudget
	strategy Strategy
	timer    retry.Timer
	log      logger.Logger
}

// Option customises a Poller.
type Option func(*Poller)

// WithLocation sets the timezone samples are converted to. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(p *Poller) { p.loc = loc }
}

// WithStrategy replaces the default PlausibleClock strategy.
func WithStrategy(s Strategy) Option {
	return func(p *Poller) { p.strategy = s }
}

// WithTimer replaces the timer used between attempts.
func WithTimer(t retry.Timer) Option {
	return func(p *Poller) { p.timer = t }
}

func NewPoller(clock Clock, budget RetryBudget, opts ...Option) *Poller {
	p := &Poller{
		clock:    clock,
		loc:      time.Local,
		budget:   budget,
		strategy: PlausibleClock{MinYear: consts.DefaultMinYear},
		log:      logger.Log.With("component", "time_sync"),
	}
	for _, o := range opts {
		o(p)
	}
	if p.budget.MaxAttempts < 1 {
		p.budget.MaxAttempts = 1
	}
	return p
}

func newSyncFSM() *fsm.StateMachine {
	sm := fsm.New(fsm.State(consts.SyncPolling))
	sm.AddTransition(fsm.State(consts.SyncPolling), fsm.State(consts.SyncPolling), "retry", nil)
	sm.AddTransition(fsm.State(consts.SyncPolling), fsm.State(consts.SyncSynced), "synced", nil)
	sm.AddTransition(fsm.State(consts.SyncPolling), fsm.State(consts.SyncExhausted), "exhausted", nil)
	return sm
}

// Run polls until the clock is accepted, the budget is spent or ctx is done.
// It never returns an error; cancellation ends the session as EXHAUSTED.
func (p *Poller) Run(ctx context.Context) Outcome {
	sm := newSyncFSM()
	maxAttempts := p.budget.MaxAttempts
	attempts := 0
	var last time.Time

	opts := []retry.Option{
		retry.Attempts(uint(maxAttempts)),
		retry.Delay(p.budget.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}

	err := retry.Do(func() error {
		attempts++
		monitor.SyncAttempts.Inc()
		last = p.clock.Now().In(p.loc)
		if p.strategy.Synced(last) {
			return nil
		}
		p.log.Info("Waiting for system time to be set...", "attempt", attempts, "max", maxAttempts)
		if attempts < maxAttempts {
			sm.Fire("retry")
		}
		return errNotSynced
	}, opts...)

	out := Outcome{Attempts: attempts, Time: last}
	switch {
	case err == nil:
		sm.Fire("synced")
		p.log.Info("System time set", "time", last.Format(TimestampLayout), "attempts", attempts)
	case errors.Is(err, errNotSynced):
		sm.Fire("exhausted")
		p.log.Warn("System time not set after retries, proceeding anyway", "retries", maxAttempts)
	default:
		sm.Fire("exhausted")
		p.log.Warn("Time sync wait cancelled, proceeding anyway", "attempts", attempts, "err", err)
	}
	out.State = consts.SyncState(sm.Current())
	recordOutcome(out.State)
	return out
}

func recordOutcome(state consts.SyncState) {
	for _, s := range []consts.SyncState{consts.SyncSynced, consts.SyncExhausted} {
		v := 0.0
		if s == state {
			v = 1
		}
		monitor.SyncOutcome.WithLabelValues(string(s)).Set(v)
	}
}

// Personal.AI order the ending
