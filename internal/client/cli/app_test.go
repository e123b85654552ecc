package cli

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/config"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/syncqueue"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi"
	apiconfig "github.com/dmitrijs2005/fieldcrm/internal/devapi/config"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// switchableAPI drops connections while down, which the client sees as
// the server being unreachable.
type switchableAPI struct {
	h    http.Handler
	down atomic.Bool
}

func (s *switchableAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.down.Load() {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.h.ServeHTTP(w, r)
}

func newTestApp(t *testing.T) (*App, *switchableAPI, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	acfg := &apiconfig.Config{}
	acfg.LoadDefaults()
	acfg.SeedPassword = "secret"
	api, err := devapi.NewApp(acfg, logging.Discard())
	require.NoError(t, err)

	sw := &switchableAPI{h: api.Handler()}
	srv := httptest.NewServer(sw)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = srv.URL + acfg.BasePath
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.PrefsPath = filepath.Join(dir, "prefs.toml")
	cfg.DebounceWindow = 0
	cfg.ProbeTimeout = time.Second

	a, err := NewApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	a.reader = bufio.NewReader(strings.NewReader(""))
	a.out = io.Discard
	t.Cleanup(func() { _ = a.Close() })

	return a, sw, dir
}

func stubCredentials(t *testing.T, login, password string) {
	t.Helper()
	origText, origPass := getSimpleText, getPassword
	getSimpleText = func(*bufio.Reader, string, io.Writer) (string, error) { return login, nil }
	getPassword = func(io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { getSimpleText, getPassword = origText, origPass })
}

func TestApp_LoginBrowseAndMutate(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)
	out := capturePrintln(t)

	stubCredentials(t, "master", "secret")
	require.NoError(t, a.Login(ctx))
	assert.Contains(t, out.String(), "Signed in as Ivan Petrov")
	assert.True(t, a.isLoggedIn())

	require.NoError(t, a.Orders(ctx))
	assert.Contains(t, out.String(), "SO-0042")

	require.NoError(t, a.Status(ctx, "42", "in_progress"))
	assert.Contains(t, out.String(), "Status saved.")

	require.NoError(t, a.Update(ctx, "42", []string{"address=1 Main St"}))
	require.NoError(t, a.Order(ctx, "42"))
	assert.Contains(t, out.String(), "1 Main St")
	assert.Contains(t, out.String(), "in_progress")

	require.NoError(t, a.Whoami(ctx))
	assert.Contains(t, out.String(), "master, master")

	// rejected locally, before anything is queued or sent
	err := a.Status(ctx, "42", "lost")
	require.ErrorIs(t, err, syncqueue.ErrInvalidItem)
	assert.NotErrorIs(t, err, client.ErrValidation)
	assert.True(t, strings.HasPrefix(describeError(err), "invalid input: "))
	st, err := a.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Pending)
}

func TestApp_WrongPassword(t *testing.T) {
	a, _, _ := newTestApp(t)
	capturePrintln(t)

	stubCredentials(t, "master", "nope")
	err := a.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, "wrong login or password", err.Error())
	assert.False(t, a.isLoggedIn())
}

func TestApp_NonMasterIsRejected(t *testing.T) {
	a, _, _ := newTestApp(t)
	capturePrintln(t)

	stubCredentials(t, "dispatcher", "secret")
	require.Error(t, a.Login(context.Background()))
	assert.False(t, a.isLoggedIn())
}

func TestApp_OfflineChangesSyncLater(t *testing.T) {
	ctx := context.Background()
	a, sw, dir := newTestApp(t)
	out := capturePrintln(t)

	stubCredentials(t, "master", "secret")
	require.NoError(t, a.Login(ctx))
	require.NoError(t, a.Orders(ctx))

	sw.down.Store(true)

	require.NoError(t, a.Orders(ctx))
	assert.Contains(t, out.String(), "offline: showing cached orders")

	require.NoError(t, a.Comment(ctx, "42", "client not home"))
	assert.Contains(t, out.String(), "Comment saved offline")

	photo := filepath.Join(dir, "door.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg"), 0o600))
	require.NoError(t, a.Photo(ctx, "42", photo))

	require.NoError(t, a.Queue(ctx))
	assert.Contains(t, out.String(), "Waiting (2)")

	require.NoError(t, a.Order(ctx, "42"))
	assert.Contains(t, out.String(), "client not home")
	assert.Contains(t, out.String(), "2 change(s) waiting to sync")

	require.NoError(t, a.Sync(ctx))
	assert.Contains(t, out.String(), "Offline, 2 change(s) waiting.")

	sw.down.Store(false)
	require.NoError(t, a.Sync(ctx))
	a.replayer.Wait()

	stats, err := a.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Failed)

	o, src, err := a.orderService.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "remote", src.String())
	require.Len(t, o.Comments, 1)
	assert.Equal(t, "client not home", o.Comments[0].Text)
	assert.Len(t, o.Photos, 1)
}

func TestApp_LogoutLocksProtectedCommands(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)
	out := capturePrintln(t)

	stubCredentials(t, "master", "secret")
	require.NoError(t, a.Login(ctx))
	require.NoError(t, a.Logout(ctx))
	assert.Contains(t, out.String(), "Signed out.")
	assert.False(t, a.isLoggedIn())

	err := a.Orders(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, "/login", a.currentRoute())
}

func TestApp_SettingsCommands(t *testing.T) {
	ctx := context.Background()
	a, _, dir := newTestApp(t)
	out := capturePrintln(t)

	require.NoError(t, a.Theme(ctx, "dark"))
	require.NoError(t, a.Design(ctx, "v2"))
	assert.Contains(t, out.String(), "Theme: dark")
	assert.Contains(t, out.String(), "Design: v2")
	assert.Equal(t, models.ThemeDark, a.settings.Current().Theme)

	raw, err := os.ReadFile(filepath.Join(dir, "prefs.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "dark")

	assert.Error(t, a.Theme(ctx, "neon"))
}

func TestApp_Notifications(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)
	out := capturePrintln(t)

	stubCredentials(t, "master", "secret")
	require.NoError(t, a.Login(ctx))

	require.NoError(t, a.Notifications(ctx))
	assert.Contains(t, out.String(), "New order assigned")
	assert.Contains(t, out.String(), "open with: order 42")

	require.NoError(t, a.Read(ctx, "n-1"))
	require.NoError(t, a.Dismiss(ctx, "n-2"))
	assert.Contains(t, out.String(), "Dismissed.")

	n, err := a.poller.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
