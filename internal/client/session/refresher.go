// Package session keeps the API session alive in the background.
//
// While a protected screen is shown and a cached identity exists, the
// Refresher renews the session on a fixed period, well inside the
// credential lifetime so that one lost attempt is harmless. Network
// failures are logged and left to the next tick. A definitive rejection
// (401/403) stops the refresher, forgets the cached identity and calls the
// OnRejected hook so the front-end can send the user to the login screen.
//
// Scheduled and manual refreshes share one in-flight request.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/profile"
	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Refresh period and assumed credential lifetime when none is configured.
const (
	DefaultInterval = 4 * time.Minute
	DefaultLifetime = 15 * time.Minute
)

// State is where the Refresher is in its lifecycle.
type State int

const (
	Idle State = iota
	Scheduled
	Refreshing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Refreshing:
		return "refreshing"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Renewer is the part of the API client the refresher needs.
type Renewer interface {
	Refresh(ctx context.Context) error
	Session() models.Session
	SessionExpiry() time.Time
}

// Refresher renews the session on a timer while a protected route is
// active. It is safe for concurrent use; create it with NewRefresher.
type Refresher struct {
	api        Renewer
	profiles   profile.Repository
	log        logging.Logger
	interval   time.Duration
	lifetime   time.Duration
	nowFunc    func() time.Time
	onRejected func(ctx context.Context)

	group singleflight.Group

	mu      sync.Mutex
	state   State
	route   string
	baseCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithInterval sets the refresh period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLifetime is the credential lifetime assumed when the token does not
// carry an expiry.
func WithLifetime(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.lifetime = d
		}
	}
}

// WithOnRejected sets the hook run after the server refused to renew the
// session and the cached identity was dropped.
func WithOnRejected(fn func(ctx context.Context)) Option {
	return func(r *Refresher) { r.onRejected = fn }
}

// NewRefresher returns an idle refresher; call Start to schedule it.
func NewRefresher(api Renewer, profiles profile.Repository, log logging.Logger, opts ...Option) *Refresher {
	r := &Refresher{
		api:      api,
		profiles: profiles,
		log:      log,
		interval: DefaultInterval,
		lifetime: DefaultLifetime,
		nowFunc:  time.Now,
		state:    Idle,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start schedules refreshes if the current route is protected and an
// unexpired identity is cached. It reports whether the timer is armed.
// ctx bounds the background loop.
func (r *Refresher) Start(ctx context.Context) bool {
	r.mu.Lock()
	r.baseCtx = ctx
	route := r.route
	r.mu.Unlock()

	if route != "" && routes.IsPublic(route) {
		return false
	}
	if _, err := r.profiles.Get(ctx); err != nil {
		if !errors.Is(err, profile.ErrExpired) {
			r.log.Debug(ctx, "session refresher not started, no cached identity", "error", err)
		}
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Scheduled || r.state == Refreshing {
		return true
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.state = Scheduled
	go r.loop(loopCtx, r.done)
	return true
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = r.RefreshNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the timer and any refresh it started, and waits for the
// loop to exit.
func (r *Refresher) Stop() {
	if done := r.halt(); done != nil {
		<-done
	}
}

func (r *Refresher) halt() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Idle {
		r.state = Stopped
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	done := r.done
	r.done = nil
	return done
}

// SetRoute follows navigation: a public route stops the refresher, a
// protected one starts it again if it had been started before.
func (r *Refresher) SetRoute(route string) {
	r.mu.Lock()
	r.route = route
	base := r.baseCtx
	state := r.state
	r.mu.Unlock()

	if routes.IsPublic(route) {
		if state != Idle {
			r.Stop()
		}
		return
	}
	if base != nil && base.Err() == nil && state != Scheduled && state != Refreshing {
		r.Start(base)
	}
}

// RefreshNow renews the session immediately, or joins the renewal already
// in flight. It returns false with a nil error when the server could not be
// reached, and ErrUnauthorized when the session is gone.
func (r *Refresher) RefreshNow(ctx context.Context) (bool, error) {
	v, err, _ := r.group.Do("refresh", func() (any, error) {
		return r.refresh(ctx)
	})
	ok, _ := v.(bool)
	return ok, err
}

// Reauth adapts RefreshNow to the API client's reauth hook.
func (r *Refresher) Reauth(ctx context.Context) error {
	ok, err := r.RefreshNow(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return client.ErrUnavailable
	}
	return nil
}

func (r *Refresher) refresh(ctx context.Context) (bool, error) {
	r.mu.Lock()
	prev := r.state
	r.state = Refreshing
	r.mu.Unlock()

	restore := func() {
		r.mu.Lock()
		if r.state == Refreshing {
			r.state = prev
		}
		r.mu.Unlock()
	}

	err := r.api.Refresh(ctx)
	switch {
	case err == nil:
		restore()
		r.persist(ctx)
		return true, nil

	case errors.Is(err, client.ErrUnauthorized):
		r.halt()
		r.log.Info(ctx, "session rejected, signing out")
		if err := r.profiles.Clear(ctx); err != nil {
			r.log.Warn(ctx, "failed to clear cached profile", "error", err)
		}
		if err := r.profiles.ClearSession(ctx); err != nil {
			r.log.Warn(ctx, "failed to clear saved session", "error", err)
		}
		if r.onRejected != nil {
			r.onRejected(ctx)
		}
		return false, err

	case ctx.Err() != nil:
		// cancelled by Stop or navigation; nothing to record
		restore()
		return false, nil

	default:
		restore()
		r.log.Warn(ctx, "session refresh failed, retrying on next tick", "error", err)
		return false, nil
	}
}

func (r *Refresher) persist(ctx context.Context) {
	if err := r.profiles.SaveSession(ctx, r.api.Session()); err != nil {
		r.log.Warn(ctx, "failed to save session", "error", err)
	}

	p, err := r.profiles.Get(ctx)
	if err != nil && !errors.Is(err, profile.ErrExpired) {
		return
	}
	expires := r.api.SessionExpiry()
	if expires.IsZero() {
		expires = r.nowFunc().Add(r.lifetime)
	}
	p.ExpiresAt = expires
	if err := r.profiles.Save(ctx, p); err != nil {
		r.log.Warn(ctx, "failed to extend cached profile", "error", err)
	}
}
