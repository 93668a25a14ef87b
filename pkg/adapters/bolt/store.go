// Package bolt provides a ports.SessionStore that keeps sessions in a single
// bbolt database file, encoded with CBOR.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/aretw0/yurt/pkg/domain"
	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

const connectTimeout = 5 * time.Second

var bucketName = []byte("sessions")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	// nested maps must come back with string keys
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Store implements ports.SessionStore over bbolt.
// bbolt serializes write transactions, which makes the version check of
// Update atomic.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: connectTimeout})
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("failed to open bolt database: %w", err))
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create %s bucket: %w", bucketName, err)
	}

	return &Store{db: db}, nil
}

func get(b *bolt.Bucket, id string) (*domain.Session, error) {
	raw := b.Get([]byte(id))
	if raw == nil {
		return nil, domain.ErrSessionNotFound
	}
	var session domain.Session
	if err := decMode.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func put(b *bolt.Bucket, session *domain.Session) error {
	raw, err := encMode.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return b.Put([]byte(session.ID), raw)
}

// storeErr marks bbolt failures as unavailability and keeps domain outcomes.
func storeErr(err error) error {
	if err == nil || errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrWriteConflict) {
		return err
	}
	return domain.Unavailable(err)
}

// Find retrieves a session.
func (s *Store) Find(ctx context.Context, id string) (*domain.Session, error) {
	var session *domain.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		session, err = get(tx.Bucket(bucketName), id)
		return err
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return session, nil
}

// Insert stores a new session.
func (s *Store) Insert(ctx context.Context, session *domain.Session) error {
	stored := session.Clone()
	stored.Version = 1

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(session.ID)) != nil {
			return domain.ErrWriteConflict
		}
		return put(b, stored)
	})
	if err != nil {
		return storeErr(err)
	}
	session.Version = stored.Version
	return nil
}

// Update replaces an existing session.
func (s *Store) Update(ctx context.Context, session *domain.Session) error {
	stored := session.Clone()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		current, err := get(b, session.ID)
		if err != nil {
			return err
		}
		if session.Version > 0 && session.Version != current.Version {
			return domain.ErrWriteConflict
		}
		stored.Version = current.Version + 1
		return put(b, stored)
	})
	if err != nil {
		return storeErr(err)
	}
	session.Version = stored.Version
	return nil
}

// Remove deletes a session. Removing an absent one is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	return storeErr(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(id))
	}))
}

// List returns the IDs of every stored session in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, storeErr(err)
}

// Ping checks that the database is still open.
func (s *Store) Ping(ctx context.Context) error {
	return domain.Unavailable(s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketName) == nil {
			return fmt.Errorf("missing %s bucket", bucketName)
		}
		return nil
	}))
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}
