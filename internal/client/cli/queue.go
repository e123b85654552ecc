package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
	"github.com/dmitrijs2005/fieldcrm/internal/client/syncqueue"
)

// Queue shows what is waiting to be sent and what has been given up on.
func (a *App) Queue(ctx context.Context) error {
	return a.protected(ctx, routes.Queue, func(ctx context.Context) error {
		pending, err := a.queue.ListPending(ctx, "")
		if err != nil {
			return err
		}
		failed, err := a.queue.ListFailed(ctx)
		if err != nil {
			return err
		}
		s := a.styles()
		if len(pending) == 0 && len(failed) == 0 {
			printlnFn(s.Muted.Render("Nothing to sync."))
			return nil
		}
		if len(pending) > 0 {
			printlnFn(s.Accent.Render(fmt.Sprintf("Waiting (%d)", len(pending))))
			for _, it := range pending {
				printlnFn(queueLine(it))
			}
		}
		if len(failed) > 0 {
			printlnFn(s.Danger.Render(fmt.Sprintf("Failed (%d), use 'retry <id>' or 'discard <id>'", len(failed))))
			for _, it := range failed {
				printlnFn(queueLine(it), s.Muted.Render(it.LastError))
			}
		}
		return nil
	})
}

func queueLine(it models.SyncQueueItem) string {
	line := fmt.Sprintf("  %s  %-13s order %s  %s", it.ID, it.Type, it.OrderID, it.CreatedAt.Local().Format("02 Jan 15:04"))
	if it.Attempts > 0 {
		line += fmt.Sprintf("  attempts %d", it.Attempts)
	}
	return line
}

// Retry puts a failed item back in line and replays if online.
func (a *App) Retry(ctx context.Context, id string) error {
	return a.protected(ctx, routes.Queue, func(ctx context.Context) error {
		if _, err := a.queue.Retry(ctx, id); err != nil {
			return err
		}
		printlnFn("Queued again.")
		if a.monitor.IsOnline(ctx) {
			return a.replayNow(ctx)
		}
		return nil
	})
}

// Discard drops an item for good, with its cached photo if it had one.
func (a *App) Discard(ctx context.Context, id string) error {
	return a.protected(ctx, routes.Queue, func(ctx context.Context) error {
		item, err := a.queue.Discard(ctx, id)
		if err != nil {
			return err
		}
		if item.Type == models.SyncPhoto {
			if p, perr := photoID(item); perr == nil {
				if err := a.photos.Delete(ctx, p); err != nil {
					a.log.Warn(ctx, "failed to delete discarded photo", "photo", p, "error", err)
				}
			}
		}
		printlnFn("Discarded.")
		return nil
	})
}

func photoID(item models.SyncQueueItem) (string, error) {
	p, err := syncqueue.Payload(item)
	if err != nil {
		return "", err
	}
	pp, ok := p.(*models.PhotoPayload)
	if !ok {
		return "", fmt.Errorf("%w: not a photo item", syncqueue.ErrInvalidItem)
	}
	return pp.PhotoID, nil
}

// Sync replays the queue now.
func (a *App) Sync(ctx context.Context) error {
	return a.protected(ctx, routes.Queue, func(ctx context.Context) error {
		if !a.monitor.Check(ctx) {
			stats, err := a.queue.Stats(ctx)
			if err != nil {
				return err
			}
			printlnFn(a.styles().Warning.Render(fmt.Sprintf("Offline, %d change(s) waiting.", stats.Pending)))
			return nil
		}
		return a.replayNow(ctx)
	})
}

func (a *App) replayNow(ctx context.Context) error {
	res, err := a.replayer.Replay(ctx)
	if err != nil {
		return err
	}
	s := a.styles()
	msg := fmt.Sprintf("Sent %d, failed %d, held back %d.", res.Sent, res.Failed, res.Skipped)
	if res.Aborted {
		printlnFn(s.Warning.Render(msg + " Connection lost, the rest will follow."))
		return nil
	}
	printlnFn(s.Success.Render(msg))
	return nil
}
