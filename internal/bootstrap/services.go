package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/findash/findash/config"
	"github.com/findash/findash/internal/adapters/backend"
	"github.com/findash/findash/internal/adapters/filestore"
	redisstore "github.com/findash/findash/internal/adapters/redis"
	"github.com/findash/findash/internal/adapters/sealed"
	"github.com/findash/findash/internal/domain/finance"
	httpx "github.com/findash/findash/internal/http"
	"github.com/findash/findash/internal/observability/statsd"
	"github.com/findash/findash/internal/ports"
	"github.com/findash/findash/internal/service"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownWaitTimeout = 10 * time.Second

// ServiceContainer holds the wired runtime.
type ServiceContainer struct {
	Backend  *backend.Client
	Store    ports.UserStore
	Sessions *service.SessionService
	Shell    *httpx.Shell
	Finance  *finance.Catalog
	Metrics  *statsd.Client
}

// ServiceDeps groups what NewServices needs. Redis is required only for the
// redis session store.
type ServiceDeps struct {
	Config *config.AppConfig
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// NewServices builds the backend client, user store, session service and shell.
// The session service is registered as the client's expiry handler, so a failed
// refresh clears the stored user and signs the shell out.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps require a config")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	metrics := buildMetrics(logger, cfg.Observability)
	var sink statsd.Sink
	if metrics != nil {
		sink = metrics
	}

	client, err := backend.New(backend.Options{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("backend client: %w", err)
	}

	store, err := BuildUserStore(cfg.Session, deps.Redis)
	if err != nil {
		return ServiceContainer{}, err
	}

	sessions := service.NewSessionService(service.SessionServiceOptions{
		Backend: client,
		Store:   store,
		Logger:  logger,
	})
	client.OnSessionExpired(sessions.ForceLogout)

	catalog, err := finance.Sample()
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("load finance data: %w", err)
	}

	return ServiceContainer{
		Backend:  client,
		Store:    store,
		Sessions: sessions,
		Shell:    httpx.NewShell(httpx.ShellOptions{Sessions: sessions, Logger: logger}),
		Finance:  catalog,
		Metrics:  metrics,
	}, nil
}

// BuildUserStore returns the configured user record store, sealed when an
// encryption key is set.
//
//nolint:ireturn // the store kind is chosen at runtime.
func BuildUserStore(cfg config.SessionConfig, rdb redis.UniversalClient) (ports.UserStore, error) {
	store, err := buildBaseStore(cfg, rdb)
	if err != nil {
		return nil, err
	}
	if cfg.EncryptionKey == "" {
		return store, nil
	}
	sealer, err := sealed.NewAESGCMFromPassphrase(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("session encryption: %w", err)
	}
	sealedStore, err := sealed.NewUserStore(store, sealer)
	if err != nil {
		return nil, err
	}
	return sealedStore, nil
}

//nolint:ireturn // the store kind is chosen at runtime.
func buildBaseStore(cfg config.SessionConfig, rdb redis.UniversalClient) (ports.UserStore, error) {
	switch cfg.Store {
	case config.SessionStoreRedis:
		if rdb == nil {
			return nil, errors.New("redis session store requires a redis client")
		}
		store, err := redisstore.NewUserStore(rdb, cfg.RedisPrefix, cfg.RecordName)
		if err != nil {
			return nil, fmt.Errorf("redis user store: %w", err)
		}
		return store, nil
	case config.SessionStoreFile, "":
		store, err := filestore.NewUserStore(cfg.Dir, cfg.RecordName)
		if err != nil {
			return nil, fmt.Errorf("file user store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// buildMetrics returns a statsd client, or nil when metrics are disabled or the
// sink cannot be reached. A nil client drops every metric.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityConfig) *statsd.Client {
	if !cfg.Metrics.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// ServiceOrchestrationConfig groups what RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts the startup session check and the HTTP server,
// then blocks until SIGINT/SIGTERM or a server failure.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, err := BuildHTTPHandler(HTTPHandlerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return err
	}
	return Serve(sigCtx, ServeConfig{
		Addr:    cfg.Config.HTTP.Addr,
		Handler: handler,
		Shell:   cfg.Services.Shell,
		Logger:  cfg.Logger,
	})
}

// ServeConfig contains dependencies for Serve.
type ServeConfig struct {
	Addr    string
	Handler http.Handler
	Shell   *httpx.Shell
	Logger  *slog.Logger
}

// Serve runs the HTTP server and the shell's startup check until ctx is done,
// then shuts the server down gracefully. Requests that arrive before the check
// has finished see the checking view.
func Serve(ctx context.Context, cfg ServeConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	server := newServer(cfg.Addr, cfg.Handler)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Shell != nil {
		g.Go(func() error {
			cfg.Shell.Init(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		return ShutdownHTTPServer(ShutdownConfig{Server: server, Logger: logger})
	})
	return g.Wait()
}
