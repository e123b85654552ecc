package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fieldcrm/internal/client/guard"
	"github.com/dmitrijs2005/fieldcrm/internal/client/notify"
	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
	"github.com/dmitrijs2005/fieldcrm/internal/client/supervise"
)

func (a *App) getStatus() string {
	var parts []string
	if p, err := a.authService.CachedProfile(context.Background()); err == nil && p.Login != "" {
		parts = append(parts, p.Login)
	}

	online, known := a.monitor.Status()
	switch {
	case a.monitor.Reconnecting():
		parts = append(parts, "syncing")
	case known && online:
		parts = append(parts, "online")
	case known:
		parts = append(parts, "offline")
	}

	if st, err := a.queue.Stats(context.Background()); err == nil {
		if st.Pending > 0 {
			parts = append(parts, fmt.Sprintf("%d queued", st.Pending))
		}
		if st.Failed > 0 {
			parts = append(parts, fmt.Sprintf("%d failed", st.Failed))
		}
	}
	if !a.persistent {
		parts = append(parts, "no storage")
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ") "
}

// Root restores state, starts the background loops and runs the REPL until
// the user exits or ctx ends.
func (a *App) Root(ctx context.Context) {
	a.mu.Lock()
	a.baseCtx = ctx
	a.mu.Unlock()

	printlnFn(a.styles().Accent.Render("fieldcrm (type 'help' for commands)"))
	a.startBackground(ctx)

	// a blocked stdin read must not hold up shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.getStatus, a.reader)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		printlnFn("Bye!")
	}
}

func (a *App) startBackground(ctx context.Context) {
	repaired, err := a.settings.RestoreFromDurable(ctx)
	if err == nil && repaired {
		notify.Info(a.bus, "Settings restored")
	}

	msgs, _ := a.bus.Subscribe(64)
	go a.printMessages(msgs)

	restored, err := a.authService.Restore(ctx)
	if err != nil {
		a.log.Warn(ctx, "failed to restore session", "error", err)
	}
	if restored && a.isLoggedIn() {
		a.navigate(routes.Orders)
		a.refresher.Start(ctx)
	} else {
		printlnFn(a.styles().Muted.Render("Please sign in: type 'login'."))
	}

	logFailure := func(name string) func(error) {
		return func(err error) {
			if ctx.Err() == nil {
				a.log.Error(ctx, "background task stopped", "task", name, "error", err)
			}
		}
	}
	supervise.Go(ctx, func(ctx context.Context) error {
		a.monitor.Run(ctx, a.config.OnlineCheckInterval)
		return ctx.Err()
	}, logFailure("connectivity"))
	supervise.Go(ctx, func(ctx context.Context) error {
		a.poller.Run(ctx, a.config.NotificationPollInterval)
		return ctx.Err()
	}, logFailure("notifications"))
}

// printMessages renders bus traffic until the bus is closed.
func (a *App) printMessages(msgs <-chan notify.Message) {
	for m := range msgs {
		switch m := m.(type) {
		case notify.Toast:
			printlnFn(a.styles().toast(m))
		case notify.Navigate:
			a.navigate(m.Route)
		}
	}
}

// protected runs render behind the session guard. The command body only
// runs once the session is confirmed (or vouched for by the cached identity
// offline); a panic or error in it is reported and does not end the REPL.
func (a *App) protected(ctx context.Context, route string, render func(context.Context) error) error {
	var renderErr error
	view := guard.ViewFuncs{
		OnLoading: func() {
			a.log.Debug(ctx, "checking session", "route", route)
		},
		OnRender: func() {
			a.navigate(route)
			renderErr = supervise.Run(ctx, render, func(err error) {
				a.log.Debug(ctx, "command failed", "route", route, "error", err)
			})
		},
	}
	if _, err := a.guard.Enter(ctx, route, view); err != nil {
		return err
	}
	return renderErr
}
