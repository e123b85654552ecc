package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and signs in. Signing in needs the server;
// there is no offline login, but a cached identity keeps protected screens
// usable offline afterwards.
//
// On success the session refresher is started and the orders screen opened.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter login", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	p, err := a.authService.Login(ctx, login, string(password))
	switch {
	case err == nil:
	case errors.Is(err, client.ErrUnauthorized):
		return errors.New("wrong login or password")
	case errors.Is(err, client.ErrUnavailable):
		return errors.New("server unreachable, signing in needs a connection")
	default:
		return err
	}

	printlnFn(a.styles().Success.Render(fmt.Sprintf("Signed in as %s", displayName(p.Name, p.Login))))
	a.navigate(routes.Orders)
	a.refresher.Start(a.baseContext(ctx))
	return nil
}

// Logout ends the session and returns to the login screen. Queued changes
// stay in the queue and are sent after the next sign-in.
func (a *App) Logout(ctx context.Context) error {
	a.refresher.Stop()
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	printlnFn("Signed out.")
	a.navigate(routes.Login)
	return nil
}

// Whoami shows the cached identity.
func (a *App) Whoami(ctx context.Context) error {
	return a.protected(ctx, routes.Profile, func(ctx context.Context) error {
		p, err := a.authService.CachedProfile(ctx)
		if err != nil {
			return err
		}
		s := a.styles()
		printlnFn(s.Accent.Render(displayName(p.Name, p.Login)), s.Muted.Render("("+p.Login+", "+p.Role+")"))
		printlnFn(s.Muted.Render("session valid until " + p.ExpiresAt.Local().Format("2006-01-02 15:04")))
		if a.guard.Offline() {
			printlnFn(s.Warning.Render("offline: showing cached identity"))
		}
		return nil
	})
}

func displayName(name, login string) string {
	if name != "" {
		return name
	}
	return login
}
