// Package status exposes the bring-up state on a unix socket. Each
// connection receives one JSON snapshot and is closed.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/turtacn/netclock/pkg/logger"
	"github.com/turtacn/netclock/pkg/protocol"
)

// Provider returns the current snapshot.
type Provider func() protocol.Snapshot

type Server struct {
	socketPath string
	provider   Provider
	log        logger.Logger
}

func NewServer(path string, provider Provider) *Server {
	return &Server{
		socketPath: path,
		provider:   provider,
		log:        logger.Log.With("component", "status", "socket", path),
	}
}

// PrepareSocket replaces any stale socket file and listens on the path.
func (s *Server) PrepareSocket() (net.Listener, error) {
	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}
	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, err
	}
	os.Chmod(s.socketPath, 0700)
	return l, nil
}

// Serve binds the socket and answers snapshot requests until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	l, err := s.PrepareSocket()
	if err != nil {
		return fmt.Errorf("status socket: %w", err)
	}
	defer os.Remove(s.socketPath)
	return s.ServeListener(ctx, l)
}

// ServeListener answers on an already bound listener and closes it when ctx is done.
func (s *Server) ServeListener(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	s.log.Info("Status endpoint listening")
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("Status accept failed", "err", err)
			continue
		}
		go s.answer(conn)
	}
}

func (s *Server) answer(conn net.Conn) {
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := json.NewEncoder(conn).Encode(s.provider()); err != nil {
		s.log.Debug("Status write failed", "err", err)
	}
}

// Query fetches one snapshot from the endpoint at path.
func Query(path string, timeout time.Duration) (protocol.Snapshot, error) {
	var snap protocol.Snapshot
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return snap, err
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(timeout))
	if err := json.NewDecoder(conn).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Personal.AI order the ending
