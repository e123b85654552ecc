package idempotency

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBegin_ClaimsOnce(t *testing.T) {
	s := NewStore(time.Hour)

	rec, created := s.Begin("k1")
	require.True(t, created)
	assert.Equal(t, StatusInProgress, rec.Status)

	rec, created = s.Begin("k1")
	assert.False(t, created)
	assert.Equal(t, StatusInProgress, rec.Status)
}

func TestMarkDone_ReplaysResponse(t *testing.T) {
	s := NewStore(time.Hour)
	_, _ = s.Begin("k1")

	s.MarkDone("k1", []byte(`{"success":true}`), http.StatusOK)

	rec, created := s.Begin("k1")
	require.False(t, created)
	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, http.StatusOK, rec.ResponseStatus)
	assert.JSONEq(t, `{"success":true}`, string(rec.ResponseBody))
}

func TestMarkFailed_AllowsRetry(t *testing.T) {
	s := NewStore(time.Hour)
	_, _ = s.Begin("k1")
	s.MarkFailed("k1", "boom")

	got, ok := s.Get("k1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Note)

	_, created := s.Begin("k1")
	assert.True(t, created)
}

func TestExpiredRecordsAreReplaced(t *testing.T) {
	s := NewStore(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }

	_, _ = s.Begin("k1")
	s.MarkDone("k1", nil, http.StatusOK)

	now = now.Add(2 * time.Minute)

	_, ok := s.Get("k1")
	assert.False(t, ok)

	_, created := s.Begin("k1")
	assert.True(t, created)
}

func TestMarkUnknownKeyIsNoop(t *testing.T) {
	s := NewStore(time.Hour)
	s.MarkDone("nope", []byte("x"), http.StatusOK)
	s.MarkFailed("nope", "x")

	_, ok := s.Get("nope")
	assert.False(t, ok)
}
