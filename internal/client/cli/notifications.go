package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
)

func (a *App) Notifications(ctx context.Context) error {
	return a.protected(ctx, routes.Notifications, func(ctx context.Context) error {
		list, err := a.notifService.List(ctx)
		if err != nil {
			return err
		}
		s := a.styles()
		if len(list) == 0 {
			printlnFn(s.Muted.Render("No notifications."))
			return nil
		}
		for _, n := range list {
			mark := "  "
			title := s.Text.Render(n.Title)
			if !n.Read {
				mark = s.Accent.Render("● ")
				title = s.Accent.Render(n.Title)
			}
			printlnFn(fmt.Sprintf("%s%s  %s %s", mark, title, s.Muted.Render(n.CreatedAt.Local().Format("02 Jan 15:04")), s.Muted.Render("id "+n.ID)))
			if n.Body != "" {
				printlnFn("    " + n.Body)
			}
			if n.OrderID != "" {
				printlnFn(s.Muted.Render("    open with: order " + n.OrderID))
			}
		}
		return nil
	})
}

func (a *App) Read(ctx context.Context, id string) error {
	return a.protected(ctx, routes.Notifications, func(ctx context.Context) error {
		if err := a.notifService.MarkRead(ctx, id); err != nil {
			return err
		}
		printlnFn("Marked as read.")
		return nil
	})
}

func (a *App) Dismiss(ctx context.Context, id string) error {
	return a.protected(ctx, routes.Notifications, func(ctx context.Context) error {
		if err := a.notifService.Delete(ctx, id); err != nil {
			return err
		}
		printlnFn("Dismissed.")
		return nil
	})
}
