package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/config"
	"github.com/dmitrijs2005/fieldcrm/internal/client/connectivity"
	"github.com/dmitrijs2005/fieldcrm/internal/client/guard"
	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/client/notify"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/orders"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/photos"
	"github.com/dmitrijs2005/fieldcrm/internal/client/repositories/profile"
	"github.com/dmitrijs2005/fieldcrm/internal/client/routes"
	"github.com/dmitrijs2005/fieldcrm/internal/client/services"
	"github.com/dmitrijs2005/fieldcrm/internal/client/session"
	"github.com/dmitrijs2005/fieldcrm/internal/client/settings"
	"github.com/dmitrijs2005/fieldcrm/internal/client/store"
	"github.com/dmitrijs2005/fieldcrm/internal/client/syncqueue"
	"github.com/dmitrijs2005/fieldcrm/internal/filex"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

const (
	mainDBFile     = "fieldcrm.db"
	settingsDBFile = "settings.db"
)

// App is the client container. Everything is built once in NewApp and
// handed to the parts that need it; nothing is looked up globally.
type App struct {
	config *config.Config
	log    logging.Logger

	mainStore     store.Store
	settingsStore store.Store
	persistent    bool

	api       *client.HTTPClient
	monitor   *connectivity.Monitor
	bus       *notify.Bus
	queue     *syncqueue.Queue
	replayer  *syncqueue.Replayer
	refresher *session.Refresher
	guard     *guard.Guard
	settings  *settings.Manager
	profiles  profile.Repository
	photos    photos.Repository

	authService  services.AuthService
	orderService services.OrderService
	notifService services.NotificationService
	poller       *services.NotificationPoller

	reader *bufio.Reader
	out    io.Writer

	mu      sync.Mutex
	route   string
	baseCtx context.Context

	closers []func() error
}

// NewApp builds the client from cfg. ctx bounds background work started
// later by Root; it is also the base context of replays.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	a := &App{config: cfg, log: log, reader: bufio.NewReader(os.Stdin), out: os.Stdout, route: routes.Login}

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		// the store falls back to memory below
		log.Warn(ctx, "data directory unavailable", "dir", cfg.DataDir, "error", err)
		dir = cfg.DataDir
	}

	var storeOpts []store.Option
	if cfg.MaxStoreBytes > 0 {
		storeOpts = append(storeOpts, store.WithMaxBytes(cfg.MaxStoreBytes))
	}
	mainDB := store.NewSQLite(filepath.Join(dir, mainDBFile), store.MainSchema, storeOpts...)
	a.mainStore, a.persistent, err = store.OpenOrMemory(ctx, mainDB, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.closers = append(a.closers, a.mainStore.Close)

	settingsDB := store.NewSQLite(filepath.Join(dir, settingsDBFile), store.SettingsSchema)
	a.settingsStore = settingsDB
	a.closers = append(a.closers, settingsDB.Close)

	a.api, err = client.NewHTTPClient(cfg.APIBaseURL, client.WithTimeout(cfg.ProbeTimeout*5))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	prober, err := a.newProber()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.monitor = connectivity.NewMonitor(prober, log.With("component", "connectivity"),
		connectivity.WithNative(connectivity.NativeSignal(cfg.APIBaseURL)),
		connectivity.WithProbeTimeout(cfg.ProbeTimeout),
		connectivity.WithDebounce(cfg.DebounceWindow),
		connectivity.WithReconnectBanner(cfg.ReconnectBanner),
	)

	a.bus = notify.NewBus()

	ordersRepo := orders.NewStoreRepository(a.mainStore)
	a.photos = photos.NewStoreRepository(a.mainStore)
	a.profiles = profile.NewStoreRepository(a.mainStore)

	a.queue = syncqueue.NewQueue(a.mainStore,
		syncqueue.WithEvictor(func(ctx context.Context) error {
			_, err := ordersRepo.EvictOldest(ctx, orders.DefaultEvictBatch)
			return err
		}),
		syncqueue.WithLogger(log.With("component", "queue")),
	)
	sender := syncqueue.NewAPISender(a.api, a.photos)

	a.refresher = session.NewRefresher(a.api, a.profiles, log.With("component", "session"),
		session.WithInterval(cfg.RefreshInterval),
		session.WithLifetime(cfg.SessionLifetime),
		session.WithOnRejected(func(context.Context) {
			notify.Warn(a.bus, "Your session has ended, please sign in again")
			a.bus.Publish(notify.Navigate{Route: routes.Login})
		}),
	)
	a.api.SetReauth(a.refresher.Reauth)

	a.replayer = syncqueue.NewReplayer(a.queue, sender, a.photos, log.With("component", "sync"),
		syncqueue.WithMaxAttempts(cfg.MaxSyncAttempts),
		syncqueue.WithPublisher(a.bus),
		syncqueue.WithOnUnauthorized(func(context.Context) {
			a.bus.Publish(notify.Navigate{Route: routes.Login})
		}),
		syncqueue.WithContext(ctx),
	)
	a.monitor.Subscribe(a.replayer.OnConnectivity)

	a.authService = services.NewAuthService(a.api, a.profiles, log.With("component", "auth"), cfg.ProfileTTL)
	a.orderService = services.NewOrderService(a.api, ordersRepo, a.photos, a.queue, sender, a.monitor, log.With("component", "orders"))
	a.notifService = services.NewNotificationService(a.api)
	a.poller = services.NewNotificationPoller(a.notifService, a.bus, log.With("component", "notifications"))

	a.guard = guard.New(offlineAware{a.authService, a.monitor}, a.profiles, guard.NavigatorFunc(a.navigate), log.With("component", "guard"))

	durable := settings.NewDurable(a.settingsStore, log.With("component", "settings"))
	a.settings = settings.NewManager(settings.LoadPrefs(cfg.PrefsPath), durable, log.With("component", "settings"))

	return a, nil
}

func (a *App) newProber() (connectivity.Prober, error) {
	if a.config.GRPCHealthAddr == "" {
		return connectivity.NewHTTPProber(a.config.APIBaseURL), nil
	}
	p, err := connectivity.NewGRPCProber(a.config.GRPCHealthAddr, "")
	if err != nil {
		return nil, fmt.Errorf("grpc health probe: %w", err)
	}
	a.closers = append(a.closers, p.Close)
	return p, nil
}

// offlineAware skips the profile request when the monitor already knows
// the API is out of reach, so the guard falls back to the cache at once.
type offlineAware struct {
	auth    services.AuthService
	monitor services.OnlineChecker
}

func (o offlineAware) Profile(ctx context.Context) (models.MasterProfile, error) {
	if !o.monitor.IsOnline(ctx) {
		return models.MasterProfile{}, client.ErrUnavailable
	}
	return o.auth.Profile(ctx)
}

// Close stops background work and releases the stores, newest first.
func (a *App) Close() error {
	if a.refresher != nil {
		a.refresher.Stop()
	}
	if a.replayer != nil {
		a.replayer.Wait()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) isLoggedIn() bool {
	return a.authService.IsLoggedIn(context.Background())
}

func (a *App) currentRoute() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

// navigate switches the current screen. The session refresher follows the
// route so that it only runs on protected screens.
func (a *App) navigate(route string) {
	a.mu.Lock()
	changed := a.route != route
	a.route = route
	a.mu.Unlock()

	if a.refresher != nil {
		a.refresher.SetRoute(route)
	}
	if changed && route == routes.Login {
		printlnFn(a.styles().Muted.Render("Please sign in: type 'login'."))
	}
}

// baseContext is the lifetime of background work, set by Root.
func (a *App) baseContext(fallback context.Context) context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.baseCtx != nil {
		return a.baseCtx
	}
	return fallback
}

func (a *App) styles() styles {
	if a.settings == nil {
		return stylesFor(models.ThemeLight)
	}
	return stylesFor(a.settings.Current().Theme)
}

func (a *App) design() models.DesignVersion {
	if a.settings == nil {
		return models.DesignV1
	}
	return a.settings.Current().Version
}
