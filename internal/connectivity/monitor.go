// Package connectivity probes the remote host so the engine can react
// to the network coming back instead of waiting out the poll interval.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultInterval is the probe period when none is configured.
	DefaultInterval = 20 * time.Second

	probeTimeout = 5 * time.Second
)

// ProbeFunc reports whether the remote endpoint answered.
type ProbeFunc func(ctx context.Context) bool

// HTTPProbe probes baseURL with a HEAD request. Any HTTP response
// counts as reachable, error pages included.
func HTTPProbe(baseURL string) ProbeFunc {
	client := &http.Client{Timeout: probeTimeout}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Monitor tracks reachability and fires callbacks on the offline to
// online edge.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	online   bool
	onOnline []func()
}

// NewMonitor builds a monitor around probe. The link starts out assumed
// online so a healthy start does not fire callbacks.
func NewMonitor(probe ProbeFunc, interval time.Duration, log *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{probe: probe, interval: interval, log: log, online: true}
}

// OnOnline registers fn to run when the link transitions from offline
// to online.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

// Online reports the last observed reachability.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records an externally observed transition, such as an OS
// network-change callback, ahead of the next probe.
func (m *Monitor) SetOnline(online bool) {
	m.observe(online)
}

// Run probes at the configured interval until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.observe(m.probe(ctx))
		}
	}
}

// observe records one probe result.
func (m *Monitor) observe(online bool) {
	m.mu.Lock()
	was := m.online
	m.online = online
	var fns []func()
	if online && !was {
		fns = append(fns, m.onOnline...)
	}
	m.mu.Unlock()

	switch {
	case online && !was:
		m.log.Info("network restored")
	case !online && was:
		m.log.Info("network lost")
	}

	for _, fn := range fns {
		fn()
	}
}
