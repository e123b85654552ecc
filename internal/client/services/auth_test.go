package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/profile"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T, api *fakeAPI) (*authService, profile.Repository) {
	t.Helper()
	profiles := profile.NewStoreRepository(store.NewMemory(store.MainSchema))
	svc := NewAuthService(api, profiles, logging.Discard(), 15*time.Minute).(*authService)
	return svc, profiles
}

func master() models.MasterProfile {
	return models.MasterProfile{ID: "m1", Login: "ivan", Name: "Ivan", Role: models.RoleMaster}
}

func TestAuth_LoginCachesIdentityAndSession(t *testing.T) {
	ctx := context.Background()
	expiry := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	api := &fakeAPI{
		LoginRet: master(),
		Expiry:   expiry,
		Sess:     models.Session{Cookies: []models.SessionCookie{{Name: common.AccessTokenCookieName, Value: "jwt"}}},
	}
	svc, profiles := newAuth(t, api)

	p, err := svc.Login(ctx, "ivan", "secret")
	require.NoError(t, err)
	assert.Equal(t, "m1", p.ID)
	assert.True(t, p.ExpiresAt.Equal(expiry))

	cached, err := profiles.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ivan", cached.Login)

	sess, err := profiles.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt", sess.Cookies[0].Value)
	assert.True(t, svc.IsLoggedIn(ctx))
}

func TestAuth_LoginFallsBackToLifetime(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newAuth(t, &fakeAPI{LoginRet: master()})
	svc.nowFunc = func() time.Time { return now }

	p, err := svc.Login(context.Background(), "ivan", "secret")
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), p.ExpiresAt)
}

func TestAuth_LoginValidatesForm(t *testing.T) {
	api := &fakeAPI{LoginRet: master()}
	svc, _ := newAuth(t, api)

	_, err := svc.Login(context.Background(), "ivan", "")
	require.ErrorIs(t, err, client.ErrValidation)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "password")
	assert.Empty(t, api.Calls(), "nothing is sent for an invalid form")
}

func TestAuth_LoginRejectsOtherRoles(t *testing.T) {
	ctx := context.Background()
	admin := master()
	admin.Role = "admin"
	api := &fakeAPI{LoginRet: admin}
	svc, profiles := newAuth(t, api)

	_, err := svc.Login(ctx, "boss", "secret")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 1, api.Cleared)
	_, err = profiles.Get(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuth_LoginPropagatesServerAnswer(t *testing.T) {
	svc, _ := newAuth(t, &fakeAPI{LoginErr: client.ErrUnauthorized})
	_, err := svc.Login(context.Background(), "ivan", "wrong")
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestAuth_LogoutClearsLocallyEvenWhenServerIsDown(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{LoginRet: master(), LogoutErr: client.ErrUnavailable}
	svc, profiles := newAuth(t, api)
	_, err := svc.Login(ctx, "ivan", "secret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	assert.False(t, svc.IsLoggedIn(ctx))
	_, err = profiles.LoadSession(ctx)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuth_ProfileRefreshesCache(t *testing.T) {
	ctx := context.Background()
	fresh := master()
	fresh.Name = "Ivan Petrov"
	svc, profiles := newAuth(t, &fakeAPI{ProfileRet: fresh})

	p, err := svc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", p.Name)

	cached, err := profiles.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", cached.Name)
}

func TestAuth_ProfileErrorLeavesCacheAlone(t *testing.T) {
	ctx := context.Background()
	svc, profiles := newAuth(t, &fakeAPI{ProfileErr: client.ErrUnavailable})
	require.NoError(t, profiles.Save(ctx, master()))

	_, err := svc.Profile(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.True(t, svc.IsLoggedIn(ctx))
}

func TestAuth_IsLoggedInFalseWhenExpired(t *testing.T) {
	ctx := context.Background()
	svc, profiles := newAuth(t, &fakeAPI{})
	p := master()
	p.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, profiles.Save(ctx, p))

	assert.False(t, svc.IsLoggedIn(ctx))
}

func TestAuth_Restore(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	svc, profiles := newAuth(t, api)

	ok, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "nothing saved yet")

	saved := models.Session{RefreshToken: "r1"}
	require.NoError(t, profiles.SaveSession(ctx, saved))
	ok, err = svc.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, api.Restored)
	assert.Equal(t, "r1", api.Restored.RefreshToken)
}

func TestAuth_RestoreReportsStorageFailure(t *testing.T) {
	svc := NewAuthService(&fakeAPI{}, failingProfiles{err: store.ErrStorageUnavailable}, logging.Discard(), time.Minute)
	_, err := svc.Restore(context.Background())
	require.True(t, errors.Is(err, store.ErrStorageUnavailable))
}

type failingProfiles struct {
	profile.Repository
	err error
}

func (f failingProfiles) LoadSession(context.Context) (models.Session, error) {
	return models.Session{}, f.err
}
