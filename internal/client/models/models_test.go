package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppSettings_Defaults(t *testing.T) {
	d := DefaultSettings()
	assert.Equal(t, ThemeLight, d.Theme)
	assert.Equal(t, DesignV1, d.Version)
	assert.True(t, d.IsDefault())
	require.NoError(t, d.Validate())
}

func TestAppSettings_Normalize(t *testing.T) {
	got := AppSettings{Theme: "sepia", Version: DesignV2}.Normalize()
	assert.Equal(t, AppSettings{Theme: ThemeLight, Version: DesignV2}, got)

	got = AppSettings{}.Normalize()
	assert.Equal(t, DefaultSettings(), got)
}

func TestSettingsPatch_ApplyAndValidate(t *testing.T) {
	dark := ThemeDark
	v2 := DesignV2
	bad := Theme("neon")

	s := SettingsPatch{Theme: &dark}.Apply(DefaultSettings())
	assert.Equal(t, AppSettings{Theme: ThemeDark, Version: DesignV1}, s)

	s = SettingsPatch{Version: &v2}.Apply(s)
	assert.Equal(t, AppSettings{Theme: ThemeDark, Version: DesignV2}, s)

	require.NoError(t, SettingsPatch{Theme: &dark, Version: &v2}.Validate())
	require.Error(t, SettingsPatch{Theme: &bad}.Validate())
}

func TestMasterProfile_Expired(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	assert.False(t, MasterProfile{}.Expired(now), "zero expiry never expires")
	assert.False(t, MasterProfile{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, MasterProfile{ExpiresAt: now}.Expired(now))
	assert.True(t, MasterProfile{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}

func TestNotification_Route(t *testing.T) {
	assert.Equal(t, "/orders/42", Notification{OrderID: "42"}.Route())
	assert.Equal(t, "/notifications", Notification{}.Route())
}

func TestSession_Empty(t *testing.T) {
	assert.True(t, Session{}.Empty())
	assert.False(t, Session{RefreshToken: "r"}.Empty())
	assert.False(t, Session{Cookies: []SessionCookie{{Name: "access_token", Value: "x"}}}.Empty())
}
