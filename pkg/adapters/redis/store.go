package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/yurt/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// noExpiryScore ranks sessions without TTL in the index (2100-01-01).
const noExpiryScore = 4102444800

// Store implements ports.SessionStore using Redis.
// Every session is a JSON string key; a ZSET indexes the IDs by expiration
// so List can prune expired entries lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration for sessions. Every write restarts it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "yurt:session:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) score() float64 {
	if s.ttl == 0 {
		return noExpiryScore
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Find retrieves the session from Redis.
func (s *Store) Find(ctx context.Context, id string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.Unavailable(fmt.Errorf("failed to get from redis: %w", err))
	}
	return decode(val)
}

func decode(val []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Insert stores a new session with SET NX.
func (s *Store) Insert(ctx context.Context, session *domain.Session) error {
	stored := session.Clone()
	stored.Version = 1
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return domain.Unavailable(fmt.Errorf("failed to save to redis: %w", err))
	}
	if !ok {
		return domain.ErrWriteConflict
	}

	err = s.client.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: session.ID}).Err()
	if err != nil {
		return domain.Unavailable(fmt.Errorf("failed to index session: %w", err))
	}

	session.Version = stored.Version
	return nil
}

// Update rewrites the session inside a WATCH transaction so that the
// version check and the write are atomic.
func (s *Store) Update(ctx context.Context, session *domain.Session) error {
	key := s.key(session.ID)
	var version int64

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.ErrSessionNotFound
			}
			return err
		}
		current, err := decode(val)
		if err != nil {
			return err
		}
		if session.Version > 0 && session.Version != current.Version {
			return domain.ErrWriteConflict
		}

		stored := session.Clone()
		stored.Version = current.Version + 1
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: session.ID})
			return nil
		})
		version = stored.Version
		return err
	}, key)

	switch {
	case err == nil:
		session.Version = version
		return nil
	case errors.Is(err, backend.TxFailedErr):
		// the key changed between WATCH and EXEC
		return domain.ErrWriteConflict
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrWriteConflict):
		return err
	default:
		return domain.Unavailable(fmt.Errorf("failed to update redis: %w", err))
	}
}

// Remove deletes the session.
func (s *Store) Remove(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Unavailable(fmt.Errorf("failed to delete from redis: %w", err))
	}
	return nil
}

// List returns active sessions, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	// ZREMRANGEBYSCORE key -inf (now)
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("(%f", now)).Err()
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("failed to prune expired sessions: %w", err))
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("failed to list sessions: %w", err))
	}
	return sessions, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return domain.Unavailable(s.client.Ping(ctx).Err())
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
