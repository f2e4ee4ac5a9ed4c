package netstack

import (
	"context"
	"fmt"
	"sync"

	"github.com/turtacn/netclock/internal/monitor"
	"github.com/turtacn/netclock/internal/netif"
	"github.com/turtacn/netclock/pkg/logger"
)

// Loop is a single-goroutine event dispatcher. Handlers run serially on the
// dispatch goroutine in registration order.
type Loop struct {
	mu       sync.RWMutex
	handlers map[netif.Category]map[netif.Kind][]netif.Handler

	queue     chan netif.Event
	done      chan struct{}
	closeOnce sync.Once
	log       logger.Logger
}

// NewLoop creates a loop buffering up to size undelivered events.
func NewLoop(size int) *Loop {
	if size < 1 {
		size = 1
	}
	return &Loop{
		handlers: make(map[netif.Category]map[netif.Kind][]netif.Handler),
		queue:    make(chan netif.Event, size),
		done:     make(chan struct{}),
		log:      logger.Log.With("component", "event_loop"),
	}
}

func (l *Loop) Register(category netif.Category, kind netif.Kind, h netif.Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler for %s/%s", category, kind)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.handlers[category]; !ok {
		l.handlers[category] = make(map[netif.Kind][]netif.Handler)
	}
	l.handlers[category][kind] = append(l.handlers[category][kind], h)
	return nil
}

// Post never blocks. Events posted after Close, or onto a full queue, are dropped.
func (l *Loop) Post(ev netif.Event) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- ev:
		return true
	default:
		monitor.EventsDropped.Inc()
		l.log.Warn("Event queue full, dropping event", "event", ev.String())
		return false
	}
}

// Run dispatches queued events until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case ev := <-l.queue:
			l.dispatch(ev)
		}
	}
}

// Close stops Run. Safe to call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

func (l *Loop) dispatch(ev netif.Event) {
	l.mu.RLock()
	byKind := l.handlers[ev.Category]
	hs := make([]netif.Handler, 0, len(byKind[ev.Kind])+len(byKind[netif.KindAny]))
	hs = append(hs, byKind[ev.Kind]...)
	if ev.Kind != netif.KindAny {
		hs = append(hs, byKind[netif.KindAny]...)
	}
	l.mu.RUnlock()

	if len(hs) == 0 {
		l.log.Debug("No handler for event", "event", ev.String())
		return
	}
	for _, h := range hs {
		l.call(h, ev)
	}
}

func (l *Loop) call(h netif.Handler, ev netif.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Event handler panicked", "event", ev.String(), "panic", r)
		}
	}()
	h(ev)
}

// Personal.AI order the ending
