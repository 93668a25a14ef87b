package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/yurt/pkg/domain"
)

// Store implements ports.SessionStore using the local filesystem.
// It stores sessions as JSON files in a configured directory.
// Writes are serialized within the process; several processes sharing a
// directory get last-write-wins semantics.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".yurt/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".yurt", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("session id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.BasePath, id+".json"), nil
}

// Find reads the session file.
func (s *Store) Find(ctx context.Context, id string) (*domain.Session, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return s.read(filePath)
}

func (s *Store) read(filePath string) (*domain.Session, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.Unavailable(fmt.Errorf("failed to read session file: %w", err))
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Insert writes a new session file.
func (s *Store) Insert(ctx context.Context, session *domain.Session) error {
	filePath, err := s.path(session.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filePath); err == nil {
		return domain.ErrWriteConflict
	}
	stored := session.Clone()
	stored.Version = 1
	if err := s.write(filePath, stored); err != nil {
		return err
	}
	session.Version = stored.Version
	return nil
}

// Update rewrites an existing session file.
func (s *Store) Update(ctx context.Context, session *domain.Session) error {
	filePath, err := s.path(session.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(filePath)
	if err != nil {
		return err
	}
	if session.Version > 0 && session.Version != current.Version {
		return domain.ErrWriteConflict
	}
	stored := session.Clone()
	stored.Version = current.Version + 1
	if err := s.write(filePath, stored); err != nil {
		return err
	}
	session.Version = stored.Version
	return nil
}

// write persists the session to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) write(destPath string, session *domain.Session) error {
	if err := os.MkdirAll(s.BasePath, 0o700); err != nil {
		return domain.Unavailable(fmt.Errorf("failed to ensure session directory: %w", err))
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// same directory, so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+session.ID+"-*.json")
	if err != nil {
		return domain.Unavailable(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // gone already after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return domain.Unavailable(fmt.Errorf("failed to write to temp file: %w", err))
	}
	if err := tmpFile.Sync(); err != nil {
		return domain.Unavailable(fmt.Errorf("failed to fsync temp file: %w", err))
	}
	// cannot rename open file on Windows
	if err := tmpFile.Close(); err != nil {
		return domain.Unavailable(fmt.Errorf("failed to close temp file: %w", err))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return domain.Unavailable(fmt.Errorf("failed to rename temp file to session: %w", err))
	}
	return nil
}

// Remove deletes the session file.
func (s *Store) Remove(ctx context.Context, id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.Unavailable(fmt.Errorf("failed to delete session file: %w", err))
	}
	return nil
}

// List returns all stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, domain.Unavailable(fmt.Errorf("failed to list sessions: %w", err))
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}

// Ping checks that the base directory can be created.
func (s *Store) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.BasePath, 0o700); err != nil {
		return domain.Unavailable(err)
	}
	return nil
}
