package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultProbeTimeout    = 3 * time.Second
	DefaultDebounce        = 5 * time.Second
	DefaultReconnectBanner = 3 * time.Second
)

type Event string

const (
	Online  Event = "online"
	Offline Event = "offline"
)

type Listener func(Event)

// Prober actively checks that the API answers.
type Prober interface {
	Probe(ctx context.Context) error
}

type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

type Monitor struct {
	prober       Prober
	native       func() bool
	probeTimeout time.Duration
	debounce     time.Duration
	banner       time.Duration
	nowFunc      func() time.Time
	log          logging.Logger

	group singleflight.Group

	mu            sync.Mutex
	known         bool
	online        bool
	checkedAt     time.Time
	reconnectedAt time.Time
	listeners     map[uint64]Listener
	nextID        uint64
}

type Option func(*Monitor)

// WithNative sets the cheap local signal. The default always says online.
func WithNative(fn func() bool) Option {
	return func(m *Monitor) { m.native = fn }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.probeTimeout = d }
}

func WithDebounce(d time.Duration) Option {
	return func(m *Monitor) { m.debounce = d }
}

func WithReconnectBanner(d time.Duration) Option {
	return func(m *Monitor) { m.banner = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.nowFunc = now }
}

func NewMonitor(prober Prober, log logging.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		prober:       prober,
		native:       func() bool { return true },
		probeTimeout: DefaultProbeTimeout,
		debounce:     DefaultDebounce,
		banner:       DefaultReconnectBanner,
		nowFunc:      time.Now,
		log:          log,
		listeners:    map[uint64]Listener{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// IsOnline answers from the last probe when it is younger than the debounce
// window and probes otherwise.
func (m *Monitor) IsOnline(ctx context.Context) bool {
	if !m.native() {
		m.record(false)
		return false
	}

	m.mu.Lock()
	fresh := m.known && m.nowFunc().Sub(m.checkedAt) < m.debounce
	online := m.online
	m.mu.Unlock()
	if fresh {
		return online
	}
	return m.Check(ctx)
}

// Check probes now, bypassing the debounce window. Callers arriving while a
// probe is in flight get its result.
func (m *Monitor) Check(ctx context.Context) bool {
	if !m.native() {
		m.record(false)
		return false
	}

	v, _, _ := m.group.Do("probe", func() (any, error) {
		pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
		defer cancel()

		err := m.prober.Probe(pctx)
		if err != nil {
			m.log.Debug(ctx, "connectivity probe failed", "error", err)
		}
		online := err == nil
		m.record(online)
		return online, nil
	})
	return v.(bool)
}

func (m *Monitor) record(online bool) {
	m.mu.Lock()
	now := m.nowFunc()
	changed := !m.known || m.online != online
	if m.known && !m.online && online {
		m.reconnectedAt = now
	}
	m.known = true
	m.online = online
	m.checkedAt = now

	var listeners []Listener
	if changed {
		listeners = make([]Listener, 0, len(m.listeners))
		for _, l := range m.listeners {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	ev := Offline
	if online {
		ev = Online
	}
	m.log.Info(context.Background(), "connectivity changed", "state", string(ev))
	for _, l := range listeners {
		l(ev)
	}
}

// Subscribe registers l for transition events. Listeners run on the
// goroutine that observed the change and must not block.
func (m *Monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Status returns the last known state without probing.
func (m *Monitor) Status() (online, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online, m.known
}

// Reconnecting reports whether the client came back online within the
// banner window.
func (m *Monitor) Reconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online || m.reconnectedAt.IsZero() {
		return false
	}
	return m.nowFunc().Sub(m.reconnectedAt) < m.banner
}

// Run checks connectivity right away and then on every tick until ctx is
// done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
