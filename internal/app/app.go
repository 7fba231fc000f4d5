package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/drstein77/shopeasy/internal/catalog"
	"github.com/drstein77/shopeasy/internal/config"
	"github.com/drstein77/shopeasy/internal/controllers"
	"github.com/drstein77/shopeasy/internal/dbkeeper"
	"github.com/drstein77/shopeasy/internal/logger"
	"github.com/drstein77/shopeasy/internal/storage"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

type Server struct {
	mx      sync.Mutex
	srv     *http.Server
	stopped bool

	ctx    context.Context
	option *config.Options
	keeper *dbkeeper.DBKeeper

	Log *logger.Logger
}

// NewServer reads the configuration and builds the logger.
func NewServer(ctx context.Context) (*Server, error) {
	option := config.NewOptions()
	if err := option.ParseFlags(); err != nil {
		return nil, err
	}

	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		return nil, err
	}
	if f := option.EnvFile(); f != "" {
		nLogger.Info(".env file loaded", zap.String("path", f))
	}

	return &Server{
		ctx:    ctx,
		option: option,
		Log:    nLogger,
	}, nil
}

// Serve wires the shop together and blocks until the server stops.
func (server *Server) Serve() error {
	cat, err := server.loadCatalog()
	if err != nil {
		return err
	}
	server.Log.Info("Catalog loaded", zap.Int("products", cat.Len()))

	store := storage.NewMemoryStorage(server.ctx, cat, server.Log)
	store.Subscribe(server.Log)
	ttl := server.option.SessionTTL()
	go store.RunExpiry(expiryInterval(ttl), ttl)

	var pinger controllers.Pinger
	if server.keeper != nil {
		pinger = server.keeper
	}
	basecontr := controllers.NewBaseController(cat, store, pinger, server.Log)

	srv := &http.Server{
		Addr:              server.option.RunAddr(),
		Handler:           server.router(basecontr),
		ReadHeaderTimeout: 5 * time.Second,
	}

	server.mx.Lock()
	if server.stopped {
		server.mx.Unlock()
		return nil
	}
	server.srv = srv
	server.mx.Unlock()

	server.Log.Info("Server started", zap.String("addr", server.option.RunAddr()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (server *Server) router(basecontr *controllers.BaseController) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(server.Log.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))
	r.Mount("/", basecontr.Route())
	return r
}

// loadCatalog picks the database, then the catalog file, then the built-in
// products.
func (server *Server) loadCatalog() (*catalog.Static, error) {
	if server.option.DataBaseDSN() != "" {
		keeper, err := dbkeeper.NewDBKeeper(server.ctx, server.option.DataBaseDSN, server.Log)
		if err != nil {
			return nil, err
		}
		cat, err := loadFromKeeper(server.ctx, keeper)
		if err != nil {
			return nil, err
		}
		server.mx.Lock()
		server.keeper = keeper
		server.mx.Unlock()
		return cat, nil
	}

	if path := server.option.CatalogFile(); path != "" {
		return catalog.LoadFile(path)
	}

	return catalog.Default(), nil
}

type catalogKeeper interface {
	catalog.Source
	Close() bool
}

// loadFromKeeper closes the keeper when the catalog cannot be built from it,
// since nothing else will.
func loadFromKeeper(ctx context.Context, keeper catalogKeeper) (*catalog.Static, error) {
	cat, err := catalog.Load(ctx, keeper)
	if err != nil {
		keeper.Close()
		return nil, err
	}
	return cat, nil
}

// Shutdown stops the HTTP server and releases the database pool.
func (server *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	server.mx.Lock()
	server.stopped = true
	srv, keeper := server.srv, server.keeper
	server.mx.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			server.Log.Error("Server shutdown failed", zap.Error(err))
		}
	}
	if keeper != nil {
		keeper.Close()
	}
	server.Log.Info("Server stopped")
	_ = server.Log.Sync()
}

func expiryInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	return interval
}
