// Package resource owns the listeners the daemon binds, so ports and socket
// files are claimed before bring-up starts and released together on exit.
package resource

import (
	"fmt"
	"net"
	"os"
	"sort"
	"sync"

	"github.com/turtacn/netclock/pkg/logger"
)

type ListenerSet struct {
	mu        sync.Mutex
	listeners map[string]net.Listener
}

func NewListenerSet() *ListenerSet {
	return &ListenerSet{listeners: make(map[string]net.Listener)}
}

func key(network, addr string) string {
	return network + "://" + addr
}

// Ensure returns the listener for network/addr, binding it on first use.
// A stale unix socket file is removed before binding.
func (s *ListenerSet) Ensure(network, addr string) (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(network, addr)
	if l, ok := s.listeners[k]; ok {
		return l, nil
	}

	switch network {
	case "tcp", "tcp4", "tcp6":
	case "unix":
		if _, err := os.Stat(addr); err == nil {
			os.Remove(addr)
		}
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}

	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Listener bound", "network", network, "addr", l.Addr().String())
	s.listeners[k] = l
	return l, nil
}

// Keys lists the bound listeners in sorted order.
func (s *ListenerSet) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.listeners))
	for k := range s.listeners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close closes every listener. Unix socket files are unlinked by the listener.
func (s *ListenerSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		l.Close()
	}
	s.listeners = make(map[string]net.Listener)
}

// Personal.AI order the ending
