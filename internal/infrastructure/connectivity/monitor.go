// Package connectivity turns network reachability into a single addressable
// signal. Only the current boolean state is authoritative; missed transitions
// are irrelevant because the sync coordinator also runs at app start.
package connectivity

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/pkg/bus"
)

const probeTimeout = 5 * time.Second

// Monitor probes the API origin on an interval and publishes edge-triggered
// online/offline events on the bus.
type Monitor struct {
	probe    func(ctx context.Context) bool
	interval time.Duration
	bus      *bus.Bus
	log      zerolog.Logger

	online  atomic.Bool
	started atomic.Bool
}

// NewMonitor creates a Monitor probing target (any HTTP response counts as
// online, only a transport failure as offline).
func NewMonitor(target string, interval time.Duration, b *bus.Bus, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	client := &http.Client{Timeout: probeTimeout}
	probe := func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
		if err != nil {
			return false
		}
		res, err := client.Do(req)
		if err != nil {
			return false
		}
		res.Body.Close()
		return true
	}

	return &Monitor{probe: probe, interval: interval, bus: b, log: log}
}

// Start launches the probe loop. The first probe runs immediately so the
// initial state is known before the app-start sync pass.
func (m *Monitor) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}

	m.SetOnline(m.probe(ctx))

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SetOnline(m.probe(ctx))
			}
		}
	}()
}

// Online returns the current connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline records the state and publishes an event on transitions only.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	if online {
		m.log.Info().Msg("connectivity restored")
		m.bus.Publish(domain.EventOnline, nil)
	} else {
		m.log.Warn().Msg("connectivity lost")
		m.bus.Publish(domain.EventOffline, nil)
	}
}
