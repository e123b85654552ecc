package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
	"github.com/dmitrijs2005/fieldcrm/internal/client/services"
	"github.com/dmitrijs2005/fieldcrm/internal/filex"
)

// Orders lists the technician's orders. Offline, the cached copies are
// shown with a marker.
func (a *App) Orders(ctx context.Context) error {
	return a.protected(ctx, routes.Orders, func(ctx context.Context) error {
		list, src, err := a.orderService.List(ctx)
		if err != nil {
			return err
		}
		slices.SortFunc(list, func(x, y models.Order) int { return strings.Compare(x.Number, y.Number) })

		pending := a.pendingByOrder(ctx)
		s := a.styles()
		if src == services.SourceCache {
			printlnFn(s.Warning.Render("offline: showing cached orders"))
		}
		if len(list) == 0 {
			printlnFn(s.Muted.Render("No orders."))
			return nil
		}
		for _, o := range list {
			printlnFn(a.renderOrderRow(o, pending[o.ID]))
		}
		return nil
	})
}

func (a *App) pendingByOrder(ctx context.Context) map[string]int {
	out := map[string]int{}
	items, err := a.queue.ListPending(ctx, "")
	if err != nil {
		return out
	}
	for _, it := range items {
		out[it.OrderID]++
	}
	return out
}

// renderOrderRow is one line in the v1 design and a small card in v2.
func (a *App) renderOrderRow(o models.Order, pending int) string {
	s := a.styles()
	marker := ""
	if pending > 0 {
		marker = s.Warning.Render(fmt.Sprintf(" [%d unsynced]", pending))
	}
	if a.design() == models.DesignV2 {
		body := s.Accent.Render(o.Number+"  "+o.Title) + marker + "\n" +
			s.Text.Render(string(o.Status))
		if o.Address != "" {
			body += "\n" + s.Muted.Render(o.Address)
		}
		if o.ScheduledAt != nil {
			body += "\n" + s.Muted.Render(o.ScheduledAt.Local().Format("Mon 02 Jan 15:04"))
		}
		return s.Card.Render(body)
	}
	return fmt.Sprintf("%-10s %-14s %s%s  %s",
		o.Number, string(o.Status), o.Title, marker, s.Muted.Render("id "+o.ID))
}

// Order shows one order with its comments and unsynced changes.
func (a *App) Order(ctx context.Context, id string) error {
	return a.protected(ctx, routes.Order(id), func(ctx context.Context) error {
		o, src, err := a.orderService.Get(ctx, id)
		if err != nil {
			return err
		}
		a.printOrder(ctx, o, src)
		return nil
	})
}

func (a *App) printOrder(ctx context.Context, o models.Order, src services.Source) {
	s := a.styles()
	if src == services.SourceCache {
		printlnFn(s.Warning.Render("offline: cached copy"))
	}
	printlnFn(s.Accent.Render(o.Number + "  " + o.Title))
	printlnFn("Status:  ", string(o.Status))
	if o.ClientName != "" {
		printlnFn("Client:  ", o.ClientName, o.ClientPhone)
	}
	if o.Address != "" {
		printlnFn("Address: ", o.Address)
	}
	if o.Description != "" {
		printlnFn(o.Description)
	}
	for _, k := range slices.Sorted(maps.Keys(o.Fields)) {
		printlnFn(fmt.Sprintf("%s: %v", k, o.Fields[k]))
	}
	if len(o.Photos) > 0 {
		printlnFn(s.Muted.Render(fmt.Sprintf("%d photo(s)", len(o.Photos))))
	}
	for _, c := range o.Comments {
		who := c.Author
		if who == "" {
			who = "you"
		}
		printlnFn(s.Muted.Render(c.CreatedAt.Local().Format("02 Jan 15:04")+" "+who+":"), c.Text)
	}

	items, err := a.queue.ListPending(ctx, o.ID)
	if err == nil && len(items) > 0 {
		printlnFn(s.Warning.Render(fmt.Sprintf("%d change(s) waiting to sync", len(items))))
	}
}

func (a *App) reportOutcome(out services.Outcome, what string) {
	s := a.styles()
	if out == services.Queued {
		printlnFn(s.Warning.Render(what + " saved offline, will sync when back online."))
		return
	}
	printlnFn(s.Success.Render(what + " saved."))
}

func (a *App) Status(ctx context.Context, id, status string) error {
	return a.protected(ctx, routes.Order(id), func(ctx context.Context) error {
		out, err := a.orderService.ChangeStatus(ctx, id, models.OrderStatus(status))
		if err != nil {
			return err
		}
		a.reportOutcome(out, "Status")
		return nil
	})
}

func (a *App) Comment(ctx context.Context, id, text string) error {
	return a.protected(ctx, routes.Order(id), func(ctx context.Context) error {
		out, err := a.orderService.AddComment(ctx, id, text)
		if err != nil {
			return err
		}
		a.reportOutcome(out, "Comment")
		return nil
	})
}

// Photo reads a local file and attaches it to the order.
func (a *App) Photo(ctx context.Context, id, path string) error {
	return a.protected(ctx, routes.Order(id), func(ctx context.Context) error {
		resolved, err := filex.ExpandPath(path)
		if err != nil {
			return err
		}
		blob, err := os.ReadFile(resolved)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		out, err := a.orderService.AttachPhoto(ctx, id, filepath.Base(resolved), blob)
		if err != nil {
			return err
		}
		a.reportOutcome(out, "Photo")
		return nil
	})
}

func (a *App) Update(ctx context.Context, id string, pairs []string) error {
	fields, err := parseFields(pairs)
	if err != nil {
		return err
	}
	return a.protected(ctx, routes.Order(id), func(ctx context.Context) error {
		out, err := a.orderService.UpdateOrder(ctx, id, fields)
		if err != nil {
			return err
		}
		a.reportOutcome(out, "Changes")
		return nil
	})
}
