package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/yurt/internal/logging"
	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/ports"
)

// Manager opens a Record for every request and decides at response time
// whether the store and the client credential must change.
//
// A Manager is immutable after NewManager and safe for concurrent use.
// Every per-request decision lives on the Record.
//
// Concurrent requests sharing one session ID are not serialized: each one
// loads, mutates and saves on its own and the last write wins, unless
// WithOptimisticConcurrency is enabled.
type Manager struct {
	store     ports.SessionStore
	transport ports.Transport

	attrs      ports.CredentialAttributes
	lifetime   time.Duration
	optimistic bool

	newID   func() string
	validID func(string) bool
	now     func() time.Time

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifetime sets how long a credential set on insert stays valid.
// Zero, the default, issues a credential that lasts for the client session.
func WithLifetime(d time.Duration) Option {
	return func(m *Manager) {
		m.lifetime = d
	}
}

// WithCredentialAttributes sets the policy passed to the Transport.
func WithCredentialAttributes(attrs ports.CredentialAttributes) Option {
	return func(m *Manager) {
		m.attrs = attrs
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithOptimisticConcurrency makes Save reject updates of sessions that were
// written by someone else since they were loaded, with domain.ErrWriteConflict.
func WithOptimisticConcurrency() Option {
	return func(m *Manager) {
		m.optimistic = true
	}
}

// WithIDGenerator replaces NewID and ValidID.
// Incoming IDs rejected by valid are ignored and a new session is started.
func WithIDGenerator(generate func() string, valid func(string) bool) Option {
	return func(m *Manager) {
		m.newID = generate
		m.validID = valid
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager persisting sessions in store and carrying
// their IDs with transport.
func NewManager(store ports.SessionStore, transport ports.Transport, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		transport: transport,
		attrs: ports.CredentialAttributes{
			HTTPOnly: true,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
		newID:   NewID,
		validID: ValidID,
		now:     time.Now,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Open returns the Record of the request. It never touches the store:
// variables are loaded on first access.
func (m *Manager) Open(r *http.Request) *Record {
	id, ok := m.transport.ExtractID(r)
	if ok && !m.validID(id) {
		m.logger.Debug("Ignoring malformed session id", "length", len(id))
		ok = false
	}

	var rec *Record
	if ok {
		m.logger.Debug("Opening the existing session", "session_id", id)
		rec = newRecord(m, id, false)
	} else {
		rec = newRecord(m, m.newID(), true)
		m.logger.Debug("Opening a new session", "session_id", rec.id)
	}

	m.fire(r.Context(), m.hooks.OnOpen, rec.event(domain.EventOpen, m.now(), nil))
	return rec
}

// Save writes rec back if needed and updates the client credential.
//
//   - a destroyed record clears the credential and writes nothing
//   - an unmodified record costs nothing
//   - a modified record updates the stored session if it exists, otherwise
//     inserts it and sets the credential; a new session is inserted without
//     looking it up first
//
// Store failures are returned; the credential is never set for a failed insert.
func (m *Manager) Save(ctx context.Context, rec *Record, w http.ResponseWriter) error {
	if rec.deleted {
		m.logger.Debug("Clearing the session credential", "session_id", rec.id)
		m.transport.ClearCredential(w, m.attrs)
		m.fire(ctx, m.hooks.OnSave, rec.event(domain.EventClear, m.now(), nil))
		return nil
	}
	if !rec.modified {
		return nil
	}

	vars, err := rec.data.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	start := m.now()
	exists := false
	if !rec.isNew || rec.inserted {
		// a new session has nothing stored until its first insert
		_, err = m.store.Find(ctx, rec.id)
		switch {
		case err == nil:
			exists = true
		case errors.Is(err, domain.ErrSessionNotFound):
		default:
			return fmt.Errorf("failed to check session existence: %w", err)
		}
	}

	if exists {
		err = m.update(ctx, rec, vars)
		m.fire(ctx, m.hooks.OnSave, rec.event(domain.EventUpdate, start, err))
		if err != nil {
			return err
		}
	} else {
		err = m.insert(ctx, rec, vars)
		m.fire(ctx, m.hooks.OnSave, rec.event(domain.EventInsert, start, err))
		if err != nil {
			return err
		}
		m.transport.SetCredential(w, rec.id, m.expiry(), m.attrs)
	}

	rec.modified = false
	return nil
}

func (m *Manager) update(ctx context.Context, rec *Record, vars map[string]any) error {
	m.logger.Debug("Updating the session", "session_id", rec.id)

	next := domain.NewSession(rec.id, vars)
	next.UpdatedAt = m.now()
	if m.optimistic {
		if rec.version == 0 {
			// created by a concurrent request after our load found nothing
			return fmt.Errorf("session %s was created concurrently: %w", rec.id, domain.ErrWriteConflict)
		}
		next.Version = rec.version
	}

	if err := m.store.Update(ctx, next); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	rec.version = next.Version
	return nil
}

func (m *Manager) insert(ctx context.Context, rec *Record, vars map[string]any) error {
	m.logger.Debug("Starting a new session", "session_id", rec.id)

	next := domain.NewSession(rec.id, vars)
	next.UpdatedAt = m.now()
	if err := m.store.Insert(ctx, next); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	rec.inserted = true
	rec.version = next.Version
	return nil
}

func (m *Manager) expiry() time.Time {
	if m.lifetime <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.lifetime)
}

func (m *Manager) fire(ctx context.Context, hook func(context.Context, *domain.SessionEvent), ev *domain.SessionEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}
