package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/yurt/pkg/adapters/bolt"
	"github.com/aretw0/yurt/pkg/adapters/cookie"
	"github.com/aretw0/yurt/pkg/adapters/file"
	"github.com/aretw0/yurt/pkg/adapters/header"
	"github.com/aretw0/yurt/pkg/adapters/memory"
	"github.com/aretw0/yurt/pkg/adapters/postgres"
	"github.com/aretw0/yurt/pkg/adapters/redis"
	"github.com/aretw0/yurt/pkg/config"
	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/persistence/middleware"
	"github.com/aretw0/yurt/pkg/ports"
	"github.com/aretw0/yurt/pkg/session"
)

// Store is an opened session store and its release function.
type Store struct {
	ports.SessionStore
	Close func() error
}

// Ping forwards to the wrapped store when it implements ports.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.SessionStore.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// OpenStore builds the configured backend and wraps it with the PII and
// encryption middlewares when they are enabled.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Store, error) {
	backend, closer, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened session store", "kind", cfg.Store.Kind)

	var mws []middleware.Middleware
	if len(cfg.PII.Patterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PII.Patterns))
	}
	if cfg.Encryption.Enabled() {
		active, fallback, err := cfg.Encryption.Keys()
		if err != nil {
			_ = closer()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}

	return &Store{
		SessionStore: middleware.Wrap(backend, mws...),
		Close:        closer,
	}, nil
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (ports.SessionStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case config.StoreMemory, "":
		return memory.NewStore(), noop, nil
	case config.StoreFile:
		return file.New(cfg.File.Dir), noop, nil
	case config.StoreRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		return store, store.Close, nil
	case config.StoreBolt:
		store, err := bolt.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StorePostgres:
		store, err := postgres.New(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

// NewTransport builds the configured credential transport.
func NewTransport(cfg config.Config) ports.Transport {
	if cfg.Transport == config.TransportHeader {
		return header.New(cfg.Cookie.Name)
	}
	return cookie.New(cfg.Cookie.Name)
}

// NewManager builds a session Manager from the configuration.
func NewManager(store ports.SessionStore, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) *session.Manager {
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLifetime(cfg.Lifetime),
		session.WithCredentialAttributes(cfg.Cookie.Attributes()),
		session.WithHooks(hooks),
	}
	if cfg.Optimistic {
		opts = append(opts, session.WithOptimisticConcurrency())
	}
	return session.NewManager(store, NewTransport(cfg), opts...)
}
