package lazy

import (
	"context"
	"maps"
	"slices"
)

// ReadHook runs before the first access to a Map is served.
// It receives a Filler that can populate the Map without firing the UpdateHook.
// If it returns an error the access fails and the hook runs again on the next access.
type ReadHook func(ctx context.Context, f Filler) error

// UpdateHook runs after every mutation of a Map.
type UpdateHook func()

// Map is a string keyed mapping that defers its population to a ReadHook
// and reports mutations to an UpdateHook.
//
// The operation set is closed: every method counts as an access, and
// Set, Delete, Clear, Pop and Merge count as mutations.
// Map is not safe for concurrent use.
type Map struct {
	data     map[string]any
	read     bool
	onRead   ReadHook
	onUpdate UpdateHook
}

// Option configures a Map.
type Option func(*Map)

// WithReadHook installs the first access hook.
func WithReadHook(hook ReadHook) Option {
	return func(m *Map) {
		m.onRead = hook
	}
}

// WithUpdateHook installs the mutation hook.
func WithUpdateHook(hook UpdateHook) Option {
	return func(m *Map) {
		m.onUpdate = hook
	}
}

// New creates an empty Map.
func New(opts ...Option) *Map {
	m := &Map{
		data: make(map[string]any),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Loaded reports whether the ReadHook already ran successfully.
// It does not count as an access.
func (m *Map) Loaded() bool {
	return m.read
}

func (m *Map) access(ctx context.Context) error {
	if m.read {
		return nil
	}
	if m.onRead != nil {
		if err := m.onRead(ctx, Filler{m: m}); err != nil {
			return err
		}
	}
	m.read = true
	return nil
}

func (m *Map) updated() {
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

// Get returns the value stored under key.
func (m *Map) Get(ctx context.Context, key string) (any, bool, error) {
	if err := m.access(ctx); err != nil {
		return nil, false, err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *Map) Set(ctx context.Context, key string, value any) error {
	if err := m.access(ctx); err != nil {
		return err
	}
	m.data[key] = value
	m.updated()
	return nil
}

// Delete removes key. Removing an absent key is not a mutation.
func (m *Map) Delete(ctx context.Context, key string) error {
	if err := m.access(ctx); err != nil {
		return err
	}
	if _, ok := m.data[key]; !ok {
		return nil
	}
	delete(m.data, key)
	m.updated()
	return nil
}

// Pop removes key and returns its previous value.
func (m *Map) Pop(ctx context.Context, key string) (any, bool, error) {
	if err := m.access(ctx); err != nil {
		return nil, false, err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	delete(m.data, key)
	m.updated()
	return v, true, nil
}

// Clear removes every key.
func (m *Map) Clear(ctx context.Context) error {
	if err := m.access(ctx); err != nil {
		return err
	}
	clear(m.data)
	m.updated()
	return nil
}

// Merge copies every entry of other into the Map, overwriting existing keys.
func (m *Map) Merge(ctx context.Context, other map[string]any) error {
	if err := m.access(ctx); err != nil {
		return err
	}
	maps.Copy(m.data, other)
	m.updated()
	return nil
}

// Len returns the number of keys.
func (m *Map) Len(ctx context.Context) (int, error) {
	if err := m.access(ctx); err != nil {
		return 0, err
	}
	return len(m.data), nil
}

// Keys returns the sorted keys.
func (m *Map) Keys(ctx context.Context) ([]string, error) {
	if err := m.access(ctx); err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(m.data)), nil
}

// Range calls fn for each entry until fn returns false.
func (m *Map) Range(ctx context.Context, fn func(key string, value any) bool) error {
	if err := m.access(ctx); err != nil {
		return err
	}
	for k, v := range m.data {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

// Snapshot returns a shallow copy of the entries.
func (m *Map) Snapshot(ctx context.Context) (map[string]any, error) {
	if err := m.access(ctx); err != nil {
		return nil, err
	}
	return maps.Clone(m.data), nil
}

// Filler populates a Map from inside its ReadHook.
// The zero Filler does nothing.
type Filler struct {
	m *Map
}

// Fill merges vars into the Map without firing the UpdateHook.
func (f Filler) Fill(vars map[string]any) {
	if f.m == nil {
		return
	}
	maps.Copy(f.m.data, vars)
}
