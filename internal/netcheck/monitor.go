// Package netcheck tracks whether the cloud endpoint is reachable without
// putting a probe on the dictation hot path.
package netcheck

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

const defaultProbeTimeout = 2 * time.Second

// DialFunc opens a connection for a reachability probe.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Option customizes a Monitor.
type Option func(*Monitor)

// WithDialer replaces the TCP dialer used by probes.
func WithDialer(dial DialFunc) Option {
	return func(m *Monitor) { m.dial = dial }
}

// WithProbeTimeout bounds each probe.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(m *Monitor) { m.timeout = timeout }
}

// Monitor periodically dials a host:port and caches the outcome.
type Monitor struct {
	address  string
	interval time.Duration
	timeout  time.Duration
	dial     DialFunc
	logger   *slog.Logger

	reachable atomic.Bool
}

// New constructs a monitor. It reports reachable until the first probe says
// otherwise.
func New(address string, interval time.Duration, logger *slog.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dialer := &net.Dialer{}
	m := &Monitor{
		address:  address,
		interval: interval,
		timeout:  defaultProbeTimeout,
		dial:     dialer.DialContext,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.reachable.Store(true)
	return m
}

// Reachable returns the latest probe result without blocking.
func (m *Monitor) Reachable() bool {
	return m.reachable.Load()
}

// Probe dials once, records the result, and returns it.
func (m *Monitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	ok := true
	conn, err := m.dial(probeCtx, "tcp", m.address)
	if err != nil {
		ok = false
	} else {
		_ = conn.Close()
	}

	if previous := m.reachable.Swap(ok); previous != ok {
		if ok {
			m.logger.Info("network reachable", "address", m.address)
		} else {
			m.logger.Warn("network unreachable", "address", m.address, "error", err)
		}
	}
	return ok
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
