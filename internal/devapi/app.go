// Package devapi runs an in-memory stand-in for the CRM back end: the REST
// API the field client talks to plus an optional gRPC health service.
package devapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/devapi/config"
	gs "github.com/dmitrijs2005/fieldcrm/internal/devapi/grpc"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/handlers"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/idempotency"
	"github.com/dmitrijs2005/fieldcrm/internal/devapi/store"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   *store.Store
	handler http.Handler
}

// NewApp seeds the store and builds the router.
func NewApp(c *config.Config, l logging.Logger) (*App, error) {
	st := store.New()
	if _, err := st.Seed(c.SeedLogin, c.SeedPassword); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	h := handlers.New(c, st, idempotency.NewStore(c.IdempotencyTTL), l)

	return &App{config: c, logger: l, store: st, handler: h.Router(c.BasePath)}, nil
}

// Handler exposes the REST router, e.g. for httptest.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{Addr: app.config.EndpointAddrHTTP, Handler: app.handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP, "base_path", app.config.BasePath)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()
}
