// Package guard gates protected screens behind a session check.
//
// Entering a protected route shows the loading state, fetches the profile
// and then either renders the screen or sends the user to the login route.
// The protected content is never rendered while the check is running.
// Public routes are rendered straight away.
//
// When the API cannot be reached, a valid cached identity is enough to
// render (offline mode). An explicit rejection always wins: the cached
// identity is dropped and the user is redirected.
//
// Only the latest check counts. Entering another route or leaving cancels
// the check in flight and its outcome is discarded.
package guard

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/profile"
	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

type State int

const (
	Checking State = iota
	Authenticated
	Unauthenticated
	// Bypassed is reported for public routes, which skip the check.
	Bypassed
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	case Bypassed:
		return "bypassed"
	}
	return "unknown"
}

// ErrStale is returned by a check overtaken by a newer Enter or by Leave.
var ErrStale = errors.New("session check superseded")

// View is the screen being guarded.
type View interface {
	Loading()
	Render()
}

// ViewFuncs adapts two funcs to View.
type ViewFuncs struct {
	OnLoading func()
	OnRender  func()
}

func (v ViewFuncs) Loading() {
	if v.OnLoading != nil {
		v.OnLoading()
	}
}

func (v ViewFuncs) Render() {
	if v.OnRender != nil {
		v.OnRender()
	}
}

type Navigator interface {
	Navigate(route string)
}

type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// ProfileFetcher asks the server who is logged in.
type ProfileFetcher interface {
	Profile(ctx context.Context) (models.MasterProfile, error)
}

type Guard struct {
	fetcher  ProfileFetcher
	profiles profile.Repository
	nav      Navigator
	log      logging.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	cancel  context.CancelFunc
	offline bool
}

func New(fetcher ProfileFetcher, profiles profile.Repository, nav Navigator, log logging.Logger) *Guard {
	return &Guard{fetcher: fetcher, profiles: profiles, nav: nav, log: log, state: Unauthenticated}
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Offline reports whether the last Authenticated verdict came from the
// cached identity rather than the server.
func (g *Guard) Offline() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.offline
}

func (g *Guard) begin(ctx context.Context) (uint64, context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	cctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.state = Checking
	g.offline = false
	return g.gen, cctx
}

// settle records the verdict if gen is still the latest check.
func (g *Guard) settle(gen uint64, s State, offline bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return false
	}
	g.state = s
	g.offline = offline
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	return true
}

// Enter runs the gate for route and renders view or redirects. The error is
// client.ErrUnauthorized on a rejection and ErrStale when overtaken.
func (g *Guard) Enter(ctx context.Context, route string, view View) (State, error) {
	if routes.IsPublic(route) {
		view.Render()
		return Bypassed, nil
	}

	gen, cctx := g.begin(ctx)
	view.Loading()

	p, err := g.fetcher.Profile(cctx)
	if err == nil && p.Role != models.RoleMaster {
		err = client.ErrUnauthorized
	}

	switch {
	case err == nil:
		if !g.settle(gen, Authenticated, false) {
			return Checking, ErrStale
		}
		view.Render()
		return Authenticated, nil

	case cctx.Err() != nil && ctx.Err() == nil:
		return Checking, ErrStale

	case errors.Is(err, client.ErrUnauthorized):
		if !g.settle(gen, Unauthenticated, false) {
			return Checking, ErrStale
		}
		if cerr := g.profiles.Clear(ctx); cerr != nil {
			g.log.Warn(ctx, "failed to clear cached profile", "error", cerr)
		}
		g.nav.Navigate(routes.Login)
		return Unauthenticated, err
	}

	// the server could not vouch for the session; the cache may
	if client.IsTransient(err) {
		if _, cerr := g.profiles.Get(ctx); cerr == nil {
			if !g.settle(gen, Authenticated, true) {
				return Checking, ErrStale
			}
			g.log.Info(ctx, "rendering from cached identity", "route", route)
			view.Render()
			return Authenticated, nil
		}
	}

	if !g.settle(gen, Unauthenticated, false) {
		return Checking, ErrStale
	}
	g.log.Warn(ctx, "session check failed", "route", route, "error", err)
	g.nav.Navigate(routes.Login)
	return Unauthenticated, nil
}

// Leave abandons the current check, if any.
func (g *Guard) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	if g.state == Checking {
		g.state = Unauthenticated
	}
}
