// Package health polls the backend status endpoint on a fixed interval
// and reports readiness transitions to the UI.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/arkadia/console/pkg/api"
)

// DefaultInterval matches the original console's polling cadence.
const DefaultInterval = 30 * time.Second

// State classifies one probe result.
type State string

const (
	// StateOnline: the backend answered and reported itself ready.
	StateOnline State = "online"
	// StateDegraded: the backend answered but reported itself not ready.
	StateDegraded State = "degraded"
	// StateUnavailable: the probe itself failed (network or parse).
	StateUnavailable State = "unavailable"
)

// OK reports whether the state renders with "ok" styling. Degraded and
// unavailable carry distinct labels but both render as not ok.
func (s State) OK() bool { return s == StateOnline }

// Update is one probe result with its display label.
type Update struct {
	State State
	Label string
}

// Prober is the status call the monitor depends on; *api.Client
// satisfies it.
type Prober interface {
	Status(ctx context.Context) (api.Status, error)
}

// Monitor owns the polling loop. Each tick is independent: there is no
// retry or backoff, and a failed tick never suppresses the next one.
type Monitor struct {
	prober   Prober
	interval time.Duration
	updates  chan Update
	log      *slog.Logger
}

func New(prober Prober, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		updates:  make(chan Update, 1),
		log:      log,
	}
}

// Updates delivers probe results, most recent first: a stale undelivered
// update is dropped when a newer one arrives.
func (m *Monitor) Updates() <-chan Update { return m.updates }

// Run polls until ctx is cancelled. The first probe fires immediately,
// not after the first interval.
func (m *Monitor) Run(ctx context.Context) {
	m.publish(m.Check(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publish(m.Check(ctx))
		}
	}
}

// Check performs a single probe. Readiness comes from the backend's
// reported flag, not from HTTP success alone.
func (m *Monitor) Check(ctx context.Context) Update {
	st, err := m.prober.Status(ctx)
	if err != nil {
		m.log.Warn("status probe failed", "error", err)
		return Update{State: StateUnavailable, Label: "Status unavailable"}
	}
	if !st.RasaOK {
		return Update{State: StateDegraded, Label: "Backend degraded"}
	}
	label := st.Message
	if label == "" {
		label = "Backend online"
	}
	return Update{State: StateOnline, Label: label}
}

func (m *Monitor) publish(u Update) {
	for {
		select {
		case m.updates <- u:
			return
		default:
			// Drop the stale undelivered update.
			select {
			case <-m.updates:
			default:
			}
		}
	}
}
