package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/notify"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

const DefaultNotificationPoll = time.Minute

type NotificationService interface {
	List(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type notificationService struct {
	api client.Client
}

func NewNotificationService(api client.Client) NotificationService {
	return &notificationService{api: api}
}

func (s *notificationService) List(ctx context.Context) ([]models.Notification, error) {
	list, err := s.api.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.api.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

func (s *notificationService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteNotification(ctx, id); err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	return nil
}

// NotificationPoller announces unread notifications on the bus, each one
// once, with the route it points to.
type NotificationPoller struct {
	svc NotificationService
	pub notify.Publisher
	log logging.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewNotificationPoller(svc NotificationService, pub notify.Publisher, log logging.Logger) *NotificationPoller {
	return &NotificationPoller{svc: svc, pub: pub, log: log, seen: map[string]struct{}{}}
}

// Poll fetches notifications and publishes the unread ones not announced
// before. It returns how many were published.
func (p *NotificationPoller) Poll(ctx context.Context) (int, error) {
	list, err := p.svc.List(ctx)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, item := range list {
		if item.Read {
			continue
		}
		if _, ok := p.seen[item.ID]; ok {
			continue
		}
		p.seen[item.ID] = struct{}{}
		if p.pub != nil {
			p.pub.Publish(notify.Toast{Level: notify.LevelInfo, Text: "New notification: " + item.Title, Route: item.Route()})
		}
		n++
	}
	return n, nil
}

// Run polls right away and then every interval until ctx ends.
func (p *NotificationPoller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultNotificationPoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil {
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, client.ErrUnauthorized):
				p.log.Debug(ctx, "notification poll skipped, not signed in")
			default:
				p.log.Debug(ctx, "notification poll failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
