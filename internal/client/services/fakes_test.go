package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

// fakeAPI implements client.Client for service tests. Each call is recorded
// by name; behaviour comes from the exported fields.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	LoginRet   models.MasterProfile
	LoginErr   error
	LogoutErr  error
	ProfileRet models.MasterProfile
	ProfileErr error
	Expiry     time.Time
	Sess       models.Session
	Restored   *models.Session
	Cleared    int

	Orders     map[string]models.Order
	ListErr    error
	GetErr     error
	MutateErr  error
	StatusSent []models.OrderStatus
	Comments   []string
	Updates    []map[string]any
	Uploads    []models.CachedPhoto
	IdemKeys   []string

	Notifications []models.Notification
	NotifyErr     error
	ReadIDs       []string
	DeletedIDs    []string
}

var _ client.Client = (*fakeAPI)(nil)

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Login(_ context.Context, _, _ string) (models.MasterProfile, error) {
	f.record("Login")
	return f.LoginRet, f.LoginErr
}

func (f *fakeAPI) Refresh(context.Context) error { f.record("Refresh"); return nil }

func (f *fakeAPI) Logout(context.Context) error {
	f.record("Logout")
	f.Cleared++
	return f.LogoutErr
}

func (f *fakeAPI) Profile(context.Context) (models.MasterProfile, error) {
	f.record("Profile")
	return f.ProfileRet, f.ProfileErr
}

func (f *fakeAPI) ListOrders(context.Context) ([]models.Order, error) {
	f.record("ListOrders")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]models.Order, 0, len(f.Orders))
	for _, o := range f.Orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeAPI) GetOrder(_ context.Context, id string) (models.Order, error) {
	f.record("GetOrder")
	if f.GetErr != nil {
		return models.Order{}, f.GetErr
	}
	return f.Orders[id], nil
}

func (f *fakeAPI) UpdateOrder(ctx context.Context, id string, fields map[string]any) (models.Order, error) {
	f.record("UpdateOrder")
	if f.MutateErr != nil {
		return models.Order{}, f.MutateErr
	}
	f.Updates = append(f.Updates, fields)
	return f.Orders[id], nil
}

func (f *fakeAPI) ChangeStatus(_ context.Context, _ string, status models.OrderStatus) error {
	f.record("ChangeStatus")
	if f.MutateErr != nil {
		return f.MutateErr
	}
	f.StatusSent = append(f.StatusSent, status)
	return nil
}

func (f *fakeAPI) AddComment(_ context.Context, _ string, text string) (models.Comment, error) {
	f.record("AddComment")
	if f.MutateErr != nil {
		return models.Comment{}, f.MutateErr
	}
	f.Comments = append(f.Comments, text)
	return models.Comment{ID: "c1", Text: text}, nil
}

func (f *fakeAPI) UploadPhoto(_ context.Context, _ string, photo models.CachedPhoto) error {
	f.record("UploadPhoto")
	if f.MutateErr != nil {
		return f.MutateErr
	}
	f.Uploads = append(f.Uploads, photo)
	return nil
}

func (f *fakeAPI) ListNotifications(context.Context) ([]models.Notification, error) {
	f.record("ListNotifications")
	return f.Notifications, f.NotifyErr
}

func (f *fakeAPI) MarkNotificationRead(_ context.Context, id string) error {
	f.record("MarkNotificationRead")
	f.ReadIDs = append(f.ReadIDs, id)
	return f.NotifyErr
}

func (f *fakeAPI) DeleteNotification(_ context.Context, id string) error {
	f.record("DeleteNotification")
	f.DeletedIDs = append(f.DeletedIDs, id)
	return f.NotifyErr
}

func (f *fakeAPI) Session() models.Session { return f.Sess }

func (f *fakeAPI) RestoreSession(s models.Session) { f.Restored = &s }

func (f *fakeAPI) SessionExpiry() time.Time { return f.Expiry }

func (f *fakeAPI) ClearSession() { f.Cleared++ }

// switchable is an OnlineChecker the test flips.
type switchable struct {
	mu     sync.Mutex
	online bool
}

func (s *switchable) IsOnline(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *switchable) Set(v bool) {
	s.mu.Lock()
	s.online = v
	s.mu.Unlock()
}
