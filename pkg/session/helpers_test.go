package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/yurt/pkg/adapters/memory"
	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/ports"
	"github.com/aretw0/yurt/pkg/session"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

// spyStore counts calls and can be told to fail them.
type spyStore struct {
	*memory.Store

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newSpyStore() *spyStore {
	return &spyStore{
		Store: memory.NewStore(),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (s *spyStore) hit(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.fail[op]
}

func (s *spyStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *spyStore) failWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *spyStore) Find(ctx context.Context, id string) (*domain.Session, error) {
	if err := s.hit("find"); err != nil {
		return nil, err
	}
	return s.Store.Find(ctx, id)
}

func (s *spyStore) Insert(ctx context.Context, sess *domain.Session) error {
	if err := s.hit("insert"); err != nil {
		return err
	}
	return s.Store.Insert(ctx, sess)
}

func (s *spyStore) Update(ctx context.Context, sess *domain.Session) error {
	if err := s.hit("update"); err != nil {
		return err
	}
	return s.Store.Update(ctx, sess)
}

func (s *spyStore) Remove(ctx context.Context, id string) error {
	if err := s.hit("remove"); err != nil {
		return err
	}
	return s.Store.Remove(ctx, id)
}

// spyTransport hands out a fixed inbound ID and records credential changes.
type spyTransport struct {
	inbound string

	set     []string
	expires []time.Time
	cleared int
}

func (t *spyTransport) ExtractID(r *http.Request) (string, bool) {
	return t.inbound, t.inbound != ""
}

func (t *spyTransport) SetCredential(w http.ResponseWriter, id string, expires time.Time, attrs ports.CredentialAttributes) {
	t.set = append(t.set, id)
	t.expires = append(t.expires, expires)
}

func (t *spyTransport) ClearCredential(w http.ResponseWriter, attrs ports.CredentialAttributes) {
	t.cleared++
}

func (t *spyTransport) calls() int {
	return len(t.set) + t.cleared
}

type fixture struct {
	store     *spyStore
	transport *spyTransport
	mgr       *session.Manager
}

// newFixture builds a Manager whose requests carry inbound ("" for none).
func newFixture(t *testing.T, inbound string, opts ...session.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:     newSpyStore(),
		transport: &spyTransport{inbound: inbound},
	}
	f.mgr = session.NewManager(f.store, f.transport, opts...)
	return f
}

func (f *fixture) open() *session.Record {
	return f.mgr.Open(httptest.NewRequest(http.MethodGet, "/", nil))
}

func (f *fixture) save(rec *session.Record) error {
	return f.mgr.Save(ctx, rec, httptest.NewRecorder())
}

// seed writes a session behind the spy's back.
func (f *fixture) seed(t *testing.T, id string, vars map[string]any) {
	t.Helper()
	require.NoError(t, f.store.Store.Insert(ctx, domain.NewSession(id, vars)))
}

// stored reads a session behind the spy's back.
func (f *fixture) stored(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := f.store.Store.Find(ctx, id)
	require.NoError(t, err)
	return s
}
