package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/lazy"
	"github.com/mitchellh/mapstructure"
)

// State is the lifecycle state of a Record.
type State int

const (
	// StateNewUnloaded is a session created in this request, not accessed yet.
	StateNewUnloaded State = iota
	// StateNewLoaded is a new session whose variables were accessed.
	StateNewLoaded
	// StateExistingUnloaded is a session named by the client, not fetched yet.
	StateExistingUnloaded
	// StateExistingLoaded is a client session fetched from the store.
	StateExistingLoaded
	// StateDeleted is terminal: the session was destroyed.
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateNewUnloaded:
		return "new_unloaded"
	case StateNewLoaded:
		return "new_loaded"
	case StateExistingUnloaded:
		return "existing_unloaded"
	case StateExistingLoaded:
		return "existing_loaded"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Record is the session of a single request.
//
// Its variables are fetched from the store on first access, unless the
// session is new, and every mutation marks it modified so the Manager knows
// whether it must be written back. A Record is not safe for concurrent use
// and must not outlive its request.
type Record struct {
	mgr      *Manager
	id       string
	isNew    bool
	modified bool
	deleted  bool
	removed  bool  // destroyed or invalidated; only one removal per record
	inserted bool  // inserted by this request
	version  int64 // stored version seen by the lazy load
	data     *lazy.Map
}

func newRecord(mgr *Manager, id string, isNew bool) *Record {
	r := &Record{mgr: mgr, id: id, isNew: isNew}
	r.reset()
	return r
}

// reset installs an empty, unloaded container.
func (r *Record) reset() {
	r.data = lazy.New(
		lazy.WithReadHook(r.load),
		lazy.WithUpdateHook(r.touch),
	)
}

func (r *Record) load(ctx context.Context, f lazy.Filler) error {
	if r.isNew {
		// nothing is persisted for a new session by construction
		return nil
	}

	start := r.mgr.now()
	stored, err := r.mgr.store.Find(ctx, r.id)
	found := err == nil
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		r.mgr.fire(ctx, r.mgr.hooks.OnLoad, r.event(domain.EventLoad, start, err))
		return fmt.Errorf("failed to load session: %w", err)
	}
	if found {
		f.Fill(stored.Variables)
		r.version = stored.Version
	}

	r.mgr.logger.Debug("Loaded session", "session_id", r.id, "found", found)
	ev := r.event(domain.EventLoad, start, nil)
	ev.Found = found
	r.mgr.fire(ctx, r.mgr.hooks.OnLoad, ev)
	return nil
}

func (r *Record) event(typ domain.EventType, start time.Time, err error) *domain.SessionEvent {
	now := r.mgr.now()
	return &domain.SessionEvent{
		Timestamp: now,
		Type:      typ,
		SessionID: r.id,
		New:       r.isNew,
		Duration:  now.Sub(start),
		Err:       err,
	}
}

func (r *Record) touch() {
	r.modified = true
}

func (r *Record) usable() error {
	if r.deleted {
		return fmt.Errorf("session %s was deleted: %w", r.id, domain.ErrInvalidState)
	}
	return nil
}

func (r *Record) removable() error {
	if err := r.usable(); err != nil {
		return err
	}
	if r.removed {
		return fmt.Errorf("session %s was already invalidated: %w", r.id, domain.ErrInvalidState)
	}
	return nil
}

// ID returns the session ID.
func (r *Record) ID() string {
	return r.id
}

// IsNew reports whether the session was created in this request,
// either because none was sent or because it was invalidated.
func (r *Record) IsNew() bool {
	return r.isNew
}

// Modified reports whether a mutation happened since the last successful save.
func (r *Record) Modified() bool {
	return r.modified
}

// Loaded reports whether the variables were already fetched.
func (r *Record) Loaded() bool {
	return !r.deleted && r.data.Loaded()
}

// State returns the lifecycle state of the record.
func (r *Record) State() State {
	switch {
	case r.deleted:
		return StateDeleted
	case r.isNew && r.data.Loaded():
		return StateNewLoaded
	case r.isNew:
		return StateNewUnloaded
	case r.data.Loaded():
		return StateExistingLoaded
	default:
		return StateExistingUnloaded
	}
}

// Get returns the value stored under key.
func (r *Record) Get(ctx context.Context, key string) (any, bool, error) {
	if err := r.usable(); err != nil {
		return nil, false, err
	}
	return r.data.Get(ctx, key)
}

// Decode decodes the value stored under key into out, which must be a pointer.
// Struct fields are matched with their json tag. It returns false if key is absent.
func (r *Record) Decode(ctx context.Context, key string, out any) (bool, error) {
	v, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return false, fmt.Errorf("failed to decode session key %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key.
func (r *Record) Set(ctx context.Context, key string, value any) error {
	if err := r.usable(); err != nil {
		return err
	}
	return r.data.Set(ctx, key, value)
}

// Delete removes key.
func (r *Record) Delete(ctx context.Context, key string) error {
	if err := r.usable(); err != nil {
		return err
	}
	return r.data.Delete(ctx, key)
}

// Pop removes key and returns its previous value.
func (r *Record) Pop(ctx context.Context, key string) (any, bool, error) {
	if err := r.usable(); err != nil {
		return nil, false, err
	}
	return r.data.Pop(ctx, key)
}

// Clear removes every variable.
func (r *Record) Clear(ctx context.Context) error {
	if err := r.usable(); err != nil {
		return err
	}
	return r.data.Clear(ctx)
}

// Merge copies vars into the session, overwriting existing keys.
func (r *Record) Merge(ctx context.Context, vars map[string]any) error {
	if err := r.usable(); err != nil {
		return err
	}
	return r.data.Merge(ctx, vars)
}

// Len returns the number of variables.
func (r *Record) Len(ctx context.Context) (int, error) {
	if err := r.usable(); err != nil {
		return 0, err
	}
	return r.data.Len(ctx)
}

// Keys returns the sorted variable names.
func (r *Record) Keys(ctx context.Context) ([]string, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	return r.data.Keys(ctx)
}

// Range calls fn for each variable until fn returns false.
func (r *Record) Range(ctx context.Context, fn func(key string, value any) bool) error {
	if err := r.usable(); err != nil {
		return err
	}
	return r.data.Range(ctx, fn)
}

// Values returns a copy of the variables.
func (r *Record) Values(ctx context.Context) (map[string]any, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	return r.data.Snapshot(ctx)
}

// Destroy removes the session from the store for good.
// The record becomes unusable and the next save clears the client credential.
// If the store fails the record is left untouched. A record that was
// invalidated cannot be destroyed.
func (r *Record) Destroy(ctx context.Context) error {
	if err := r.removable(); err != nil {
		return err
	}

	start := r.mgr.now()
	if err := r.mgr.store.Remove(ctx, r.id); err != nil {
		r.mgr.fire(ctx, r.mgr.hooks.OnRemove, r.event(domain.EventDelete, start, err))
		return fmt.Errorf("failed to delete session: %w", err)
	}

	r.reset()
	r.deleted = true
	r.removed = true
	r.modified = false
	r.mgr.logger.Debug("Deleted session", "session_id", r.id)
	r.mgr.fire(ctx, r.mgr.hooks.OnRemove, r.event(domain.EventDelete, start, nil))
	return nil
}

// Invalidate removes the session from the store and starts over as a new,
// empty session with a fresh ID. The old ID is orphaned.
// It can be called once per record; later Invalidate or Destroy calls fail
// with domain.ErrInvalidState.
func (r *Record) Invalidate(ctx context.Context) error {
	if err := r.removable(); err != nil {
		return err
	}

	start := r.mgr.now()
	oldID := r.id
	ev := r.event(domain.EventInvalidate, start, nil)
	if err := r.mgr.store.Remove(ctx, oldID); err != nil {
		r.mgr.fire(ctx, r.mgr.hooks.OnRemove, r.event(domain.EventInvalidate, start, err))
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	r.id = r.mgr.newID()
	r.isNew = true
	r.modified = false
	r.inserted = false
	r.version = 0
	r.removed = true
	r.reset()
	r.mgr.logger.Debug("Invalidated session", "old_session_id", oldID, "session_id", r.id)
	ev.Duration = r.mgr.now().Sub(start)
	r.mgr.fire(ctx, r.mgr.hooks.OnRemove, ev)
	return nil
}
