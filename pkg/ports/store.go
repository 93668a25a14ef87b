package ports

import (
	"context"

	"github.com/aretw0/yurt/pkg/domain"
)

// SessionStore defines the interface of a session backing store.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Find retrieves the session with the given ID.
	// Returns domain.ErrSessionNotFound if it does not exist.
	Find(ctx context.Context, id string) (*domain.Session, error)

	// Insert persists a new session and sets session.Version to 1.
	// Returns domain.ErrWriteConflict if the ID is already taken.
	Insert(ctx context.Context, session *domain.Session) error

	// Update overwrites the variables of an existing session, bumps its
	// stored Version and copies the new Version into session.Version.
	// If session.Version > 0 it must match the stored Version, otherwise
	// domain.ErrWriteConflict is returned. Returns domain.ErrSessionNotFound
	// if the session does not exist.
	Update(ctx context.Context, session *domain.Session) error

	// Remove deletes the session. Removing an absent ID is not an error.
	Remove(ctx context.Context, id string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}

// Pinger is implemented by stores that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
