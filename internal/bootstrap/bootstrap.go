// Package bootstrap assembles the stores, adapters and use cases shared by
// the api and worker processes.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-requests/internal/config"
	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
	"github.com/kirillkom/document-requests/internal/core/usecase"
	rediscache "github.com/kirillkom/document-requests/internal/infrastructure/cache/redis"
	jwtidentity "github.com/kirillkom/document-requests/internal/infrastructure/identity/jwt"
	"github.com/kirillkom/document-requests/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-requests/internal/infrastructure/repository/memory"
	"github.com/kirillkom/document-requests/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-requests/internal/infrastructure/resilience"
	"github.com/kirillkom/document-requests/internal/infrastructure/seed"
	"github.com/kirillkom/document-requests/internal/observability/tracing"
)

const closeTimeout = 5 * time.Second

// Options carry process specific hooks. All fields are optional.
type Options struct {
	Service         string
	Observer        ports.WorkflowObserver
	ResilienceHooks resilience.Hooks
}

type App struct {
	Config config.Config

	Catalog   *usecase.CatalogUseCase
	Lifecycle *usecase.LifecycleUseCase
	Clearance *usecase.ClearanceUseCase
	Inbox     *usecase.InboxUseCase

	// Identity is nil when JWT_SIGNING_KEY is unset.
	Identity ports.IdentityProvider
	// Notifications is nil when NATS_URL is unset; notifications are then
	// written straight to the inbox.
	Notifications ports.NotificationSource

	closers []func(context.Context)
}

type stores struct {
	catalog  ports.CatalogStore
	requests ports.RequestStore
	meetings ports.MeetingStore
	users    userStore
	inbox    ports.NotificationInbox
	tx       ports.TxRunner
}

type userStore interface {
	ports.UserDirectory
	seed.UserWriter
}

func New(ctx context.Context, cfg config.Config, opts Options) (_ *App, err error) {
	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	shutdownTracing, err := tracing.Setup(ctx, opts.Service, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	app.onClose(func(ctx context.Context) {
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	})

	st, err := app.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init catalog cache: %w", err)
		}
		app.onClose(func(context.Context) { _ = client.Close() })
		st.catalog = rediscache.NewCatalogCache(st.catalog, client, cfg.CatalogCacheTTL)
	}

	app.Inbox = usecase.NewInboxUseCase(st.inbox)

	var emitter ports.NotificationEmitter = inboxEmitter{recorder: app.Inbox}
	if cfg.NATSURL != "" {
		policy := resilienceConfig(cfg)
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutorWithHooks(policy, opts.ResilienceHooks),
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		slog.Info("notification queue connected", "subject", cfg.NATSSubject, "retry_budget", policy.RetryBudget().String())
		app.onClose(func(context.Context) { queue.Close() })
		emitter = queue
		app.Notifications = queue
	}

	app.Catalog = usecase.NewCatalogUseCase(st.catalog, st.users)
	app.Lifecycle = usecase.NewLifecycleUseCase(st.catalog, st.requests, st.tx, emitter, opts.Observer)
	app.Clearance = usecase.NewClearanceUseCase(st.requests, st.meetings, st.tx, emitter, opts.Observer)

	if cfg.JWTSigningKey != "" {
		provider, err := jwtidentity.NewProvider(cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("init identity provider: %w", err)
		}
		app.Identity = provider
	}

	if cfg.SeedPath != "" {
		file, err := seed.Load(cfg.SeedPath)
		if err != nil {
			return nil, err
		}
		if err := seed.Apply(ctx, file, st.users, app.Catalog); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		return &stores{
			catalog:  store.Catalog(),
			requests: store.Requests(),
			meetings: store.Meetings(),
			users:    store.Users(),
			inbox:    store.Notifications(),
			tx:       store,
		}, nil
	case config.StorageDriverPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.onClose(func(context.Context) { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return &stores{
			catalog:  postgres.NewCatalogRepository(db),
			requests: postgres.NewRequestRepository(db),
			meetings: postgres.NewMeetingRepository(db),
			users:    postgres.NewUserRepository(db),
			inbox:    postgres.NewNotificationRepository(db),
			tx:       postgres.NewTxManager(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (a *App) onClose(fn func(context.Context)) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

// RequireIdentity returns the identity provider or an error naming the
// missing setting.
func (a *App) RequireIdentity() (ports.IdentityProvider, error) {
	if a.Identity == nil {
		return nil, errors.New("JWT_SIGNING_KEY is required to serve the api")
	}
	return a.Identity, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.NotifyRetryMaxAttempts,
		RetryInitialBackoff:     cfg.NotifyRetryInitialBackoff,
		RetryMaxBackoff:         cfg.NotifyRetryMaxBackoff,
		RetryMultiplier:         cfg.NotifyRetryMultiplier,
		BreakerEnabled:          cfg.NotifyBreakerEnabled,
		BreakerMinRequests:      cfg.NotifyBreakerMinRequests,
		BreakerFailureRatio:     cfg.NotifyBreakerFailureRatio,
		BreakerOpenTimeout:      cfg.NotifyBreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: cfg.NotifyBreakerHalfOpenMaxCalls,
	}
}

// inboxEmitter stores notifications synchronously when no broker is
// configured.
type inboxEmitter struct {
	recorder ports.NotificationRecorder
}

func (e inboxEmitter) Notify(ctx context.Context, n domain.Notification) error {
	return e.recorder.Record(ctx, n)
}
