package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/yurt/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Insert and Find", func(t *testing.T) {
		id := sessionID + "-insert"
		defer func() { _ = store.Remove(ctx, id) }()

		session := domain.NewSession(id, map[string]any{
			"foo":     "bar",
			"count":   42,
			"profile": map[string]any{"name": "alice"},
		})
		require.NoError(t, store.Insert(ctx, session), "Insert should not return error")

		loaded, err := store.Find(ctx, id)
		require.NoError(t, err, "Find should not return error")
		assert.Equal(t, id, loaded.ID)
		assert.Equal(t, int64(1), loaded.Version)
		assert.Equal(t, "bar", loaded.Variables["foo"])
		// Encodings are free to change the numeric type.
		assert.NotNil(t, loaded.Variables["count"])

		profile, ok := loaded.Variables["profile"].(map[string]any)
		require.True(t, ok, "nested maps must decode as map[string]any, got %T", loaded.Variables["profile"])
		assert.Equal(t, "alice", profile["name"])
	})

	t.Run("Find Non-Existent", func(t *testing.T) {
		_, err := store.Find(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Insert Duplicate", func(t *testing.T) {
		id := sessionID + "-dup"
		defer func() { _ = store.Remove(ctx, id) }()

		require.NoError(t, store.Insert(ctx, domain.NewSession(id, nil)))
		err := store.Insert(ctx, domain.NewSession(id, map[string]any{"x": "y"}))
		assert.ErrorIs(t, err, domain.ErrWriteConflict)
	})

	t.Run("Update", func(t *testing.T) {
		id := sessionID + "-update"
		defer func() { _ = store.Remove(ctx, id) }()

		require.NoError(t, store.Insert(ctx, domain.NewSession(id, map[string]any{"step": "one"})))

		// Version 0 is an unconditional overwrite
		require.NoError(t, store.Update(ctx, domain.NewSession(id, map[string]any{"step": "two"})))
		loaded, err := store.Find(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "two", loaded.Variables["step"])
		assert.Equal(t, int64(2), loaded.Version)

		// Matching version is accepted
		next := domain.NewSession(id, map[string]any{"step": "three"})
		next.Version = loaded.Version
		require.NoError(t, store.Update(ctx, next))

		// Stale version is rejected
		stale := domain.NewSession(id, map[string]any{"step": "stale"})
		stale.Version = loaded.Version
		assert.ErrorIs(t, store.Update(ctx, stale), domain.ErrWriteConflict)

		loaded, err = store.Find(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "three", loaded.Variables["step"])
		assert.Equal(t, int64(3), loaded.Version)
	})

	t.Run("Update Non-Existent", func(t *testing.T) {
		err := store.Update(ctx, domain.NewSession("non-existent-"+sessionID, nil))
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		id := sessionID + "-remove"
		require.NoError(t, store.Insert(ctx, domain.NewSession(id, map[string]any{"a": "b"})))

		require.NoError(t, store.Remove(ctx, id), "Remove should not return error")
		_, err := store.Find(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Find after Remove should return ErrSessionNotFound")

		// Removing twice is fine
		assert.NoError(t, store.Remove(ctx, id))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Insert(ctx, domain.NewSession(id1, nil)))
		require.NoError(t, store.Insert(ctx, domain.NewSession(id2, nil)))
		defer func() {
			_ = store.Remove(ctx, id1)
			_ = store.Remove(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
