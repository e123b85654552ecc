// Package idempotency de-duplicates mutations that carry an Idempotency-Key,
// so an at-least-once client replay is applied exactly once.
package idempotency

import (
	"sync"
	"time"
)

// Store keeps idempotency records in memory.
type Store struct {
	mu        sync.Mutex
	records   map[string]*Record
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a Store whose records expire after ttlWindow.
func NewStore(ttlWindow time.Duration) *Store {
	return &Store{
		records:   map[string]*Record{},
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Begin claims key for a new request. It returns created=true when the caller
// should process the request. Otherwise the existing record is returned so the
// caller can replay it. A FAILED or expired record is replaced.
func (s *Store) Begin(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if rec, ok := s.records[key]; ok && now.Before(rec.ExpiresAt) && rec.Status != StatusFailed {
		return *rec, false
	}

	rec := &Record{
		Key:       key,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttlWindow),
	}
	s.records[key] = rec
	s.purgeLocked(now)
	return *rec, true
}

// MarkDone stores the response so duplicates get the same answer.
func (s *Store) MarkDone(key string, body []byte, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return
	}
	rec.Status = StatusDone
	rec.ResponseBody = append([]byte(nil), body...)
	rec.ResponseStatus = status
	rec.UpdatedAt = s.nowFunc()
}

// MarkFailed lets the next request with key run again.
func (s *Store) MarkFailed(key, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return
	}
	rec.Status = StatusFailed
	rec.Note = note
	rec.UpdatedAt = s.nowFunc()
}

// Get returns the record for key, if any.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok || !s.nowFunc().Before(rec.ExpiresAt) {
		return Record{}, false
	}
	return *rec, true
}

func (s *Store) purgeLocked(now time.Time) {
	for k, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, k)
		}
	}
}
