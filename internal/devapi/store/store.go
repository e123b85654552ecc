// Package store keeps the development API's data in memory: one seeded
// master account, its refresh tokens, orders and notifications.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// FieldError reports which order fields were rejected by an update.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid fields: %v", e.Fields)
}

func (e *FieldError) Unwrap() error { return common.ErrorValidation }

// User is an account of the development API.
type User struct {
	ID           string
	Login        string
	Name         string
	Role         string
	PasswordHash []byte
}

type refreshToken struct {
	userID    string
	expiresAt time.Time
}

type photo struct {
	filename string
	size     int
}

// Store is safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	users         map[string]User
	refreshTokens map[string]refreshToken
	orders        map[string]*models.Order
	photos        map[string]photo
	notifications map[string]*models.Notification
	nowFunc       func() time.Time
}

func New() *Store {
	return &Store{
		users:         map[string]User{},
		refreshTokens: map[string]refreshToken{},
		orders:        map[string]*models.Order{},
		photos:        map[string]photo{},
		notifications: map[string]*models.Notification{},
		nowFunc:       time.Now,
	}
}

// AddUser stores an account with a bcrypt hash of password.
func (s *Store) AddUser(login, password, name, role string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{ID: uuid.NewString(), Login: login, Name: name, Role: role, PasswordHash: hash}

	s.mu.Lock()
	s.users[login] = u
	s.mu.Unlock()
	return u, nil
}

// Authenticate checks credentials. Unknown logins and wrong passwords are
// indistinguishable.
func (s *Store) Authenticate(login, password string) (User, error) {
	s.mu.RLock()
	u, ok := s.users[login]
	s.mu.RUnlock()
	if !ok {
		return User{}, common.ErrorUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, common.ErrorUnauthorized
	}
	return u, nil
}

func (s *Store) UserByID(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, common.ErrorNotFound
}

// CreateRefreshToken issues an opaque refresh token for userID.
func (s *Store) CreateRefreshToken(userID string, validity time.Duration) (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.refreshTokens[token] = refreshToken{userID: userID, expiresAt: s.nowFunc().Add(validity)}
	s.mu.Unlock()
	return token, nil
}

// RotateRefreshToken consumes token and issues a new one for the same user.
func (s *Store) RotateRefreshToken(token string, validity time.Duration) (string, string, error) {
	s.mu.Lock()
	rt, ok := s.refreshTokens[token]
	delete(s.refreshTokens, token)
	s.mu.Unlock()

	if !ok {
		return "", "", common.ErrorUnauthorized
	}
	if !s.nowFunc().Before(rt.expiresAt) {
		return "", "", common.ErrRefreshTokenExpired
	}

	next, err := s.CreateRefreshToken(rt.userID, validity)
	if err != nil {
		return "", "", err
	}
	return rt.userID, next, nil
}

func (s *Store) DeleteRefreshToken(token string) {
	s.mu.Lock()
	delete(s.refreshTokens, token)
	s.mu.Unlock()
}

func (s *Store) PutOrder(o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = s.nowFunc().UTC()
	}
	s.orders[o.ID] = &o
}

// ListOrders returns every order sorted by number.
func (s *Store) ListOrders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *Store) GetOrder(id string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, common.ErrorNotFound
	}
	return copyOrder(o), nil
}

// UpdateOrder merges fields into the order. Known keys must carry strings;
// everything else lands in the free-form Fields map. Nothing is applied when
// any key is rejected.
func (s *Store) UpdateOrder(id string, fields map[string]any) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, common.ErrorNotFound
	}

	next := copyOrder(o)
	bad := map[string]string{}
	for k, v := range fields {
		if err := applyField(&next, k, v); err != nil {
			bad[k] = err.Error()
		}
	}
	if len(bad) > 0 {
		return models.Order{}, &FieldError{Fields: bad}
	}

	next.UpdatedAt = s.nowFunc().UTC()
	s.orders[id] = &next
	return copyOrder(&next), nil
}

var errNotString = errors.New("must be a string")

func applyField(o *models.Order, key string, v any) error {
	target := map[string]*string{
		"title":        &o.Title,
		"description":  &o.Description,
		"address":      &o.Address,
		"client_name":  &o.ClientName,
		"client_phone": &o.ClientPhone,
	}[key]

	switch key {
	case "id", "number", "status", "comments", "photos", "updated_at":
		return errors.New("is read-only")
	}

	if target == nil {
		if o.Fields == nil {
			o.Fields = map[string]any{}
		}
		o.Fields[key] = v
		return nil
	}

	str, ok := v.(string)
	if !ok {
		return errNotString
	}
	if key == "title" && str == "" {
		return errors.New("is required")
	}
	*target = str
	return nil
}

func (s *Store) SetStatus(id string, status models.OrderStatus) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, common.ErrorNotFound
	}
	o.Status = status
	o.UpdatedAt = s.nowFunc().UTC()
	return copyOrder(o), nil
}

func (s *Store) AddComment(id, author, text string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Comment{}, common.ErrorNotFound
	}
	now := s.nowFunc().UTC()
	c := models.Comment{ID: uuid.NewString(), Author: author, Text: text, CreatedAt: now}
	o.Comments = append(o.Comments, c)
	o.UpdatedAt = now
	return c, nil
}

// AddPhoto attaches a photo. Uploading the same photo id twice is a no-op.
func (s *Store) AddPhoto(id, photoID, filename string, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return common.ErrorNotFound
	}
	if _, dup := s.photos[photoID]; dup {
		return nil
	}
	s.photos[photoID] = photo{filename: filename, size: size}
	o.Photos = append(o.Photos, photoID)
	o.UpdatedAt = s.nowFunc().UTC()
	return nil
}

func (s *Store) PutNotification(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.nowFunc().UTC()
	}
	s.notifications[n.ID] = &n
}

// ListNotifications returns notifications newest first.
func (s *Store) ListNotifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) MarkNotificationRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return common.ErrorNotFound
	}
	n.Read = true
	return nil
}

func (s *Store) DeleteNotification(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return common.ErrorNotFound
	}
	delete(s.notifications, id)
	return nil
}

func copyOrder(o *models.Order) models.Order {
	c := *o
	c.Comments = append([]models.Comment(nil), o.Comments...)
	c.Photos = append([]string(nil), o.Photos...)
	if o.Fields != nil {
		c.Fields = make(map[string]any, len(o.Fields))
		for k, v := range o.Fields {
			c.Fields[k] = v
		}
	}
	if o.ScheduledAt != nil {
		t := *o.ScheduledAt
		c.ScheduledAt = &t
	}
	return c
}
