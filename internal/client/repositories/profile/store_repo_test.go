package profile

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_SaveGetClear(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	r := NewStoreRepository(store.NewMemory(store.MainSchema))
	r.nowFunc = func() time.Time { return now }

	_, err := r.Get(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)

	p := models.MasterProfile{ID: "m1", Login: "ivan", Name: "Ivan", Role: models.RoleMaster, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, r.Save(ctx, p))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, now, got.SavedAt)

	now = now.Add(2 * time.Hour)
	got, err = r.Get(ctx)
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, "m1", got.ID, "expired profile is still returned")

	require.NoError(t, r.Clear(ctx))
	_, err = r.Get(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestProfile_Session(t *testing.T) {
	ctx := context.Background()
	r := NewStoreRepository(store.NewMemory(store.MainSchema))

	_, err := r.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)

	s := models.Session{
		Cookies:      []models.SessionCookie{{Name: common.AccessTokenCookieName, Value: "tok", Path: "/"}},
		RefreshToken: "rt",
	}
	require.NoError(t, r.SaveSession(ctx, s))

	got, err := r.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.RefreshToken, got.RefreshToken)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "tok", got.Cookies[0].Value)

	require.NoError(t, r.Clear(ctx))
	_, err = r.LoadSession(ctx)
	require.NoError(t, err, "clearing the profile keeps the session")

	require.NoError(t, r.ClearSession(ctx))
	_, err = r.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)
}
