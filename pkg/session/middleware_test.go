package session_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/yurt/pkg/adapters/cookie"
	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CredentialIsSentWithBufferedResponse(t *testing.T) {
	store := newSpyStore()
	mgr := session.NewManager(store, cookie.New("sid"))

	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := session.FromContext(r.Context())
		require.True(t, ok)
		require.NoError(t, rec.Set(r.Context(), "user", "alice"))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "created")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	resp := w.Result()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "created", w.Body.String())

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, session.ValidID(cookies[0].Value))
	assert.Equal(t, 1, store.count("insert"))
}

func TestMiddleware_ReadOnlyRequestSendsNoCredential(t *testing.T) {
	store := newSpyStore()
	mgr := session.NewManager(store, cookie.New("sid"))

	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ := session.FromContext(r.Context())
		_, _, _ = rec.Get(r.Context(), "user")
		_, _ = io.WriteString(w, "hello")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, 0, store.count("insert"))
	assert.Equal(t, 0, store.count("find"))
}

func TestMiddleware_SaveFailureDropsResponse(t *testing.T) {
	store := newSpyStore()
	store.failWith("insert", domain.Unavailable(errors.New("connection refused")))
	mgr := session.NewManager(store, cookie.New("sid"))

	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ := session.FromContext(r.Context())
		_ = rec.Set(r.Context(), "a", 1)
		_, _ = io.WriteString(w, "all good")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "all good")
	assert.Empty(t, w.Result().Cookies())
}

func TestMiddleware_ExistingCookieIsReused(t *testing.T) {
	store := newSpyStore()
	mgr := session.NewManager(store, cookie.New("sid"))
	id := session.NewID()
	require.NoError(t, store.Store.Insert(ctx, domain.NewSession(id, map[string]any{"n": 1})))

	var seen any
	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ := session.FromContext(r.Context())
		seen, _, _ = rec.Get(r.Context(), "n")
		_ = rec.Set(r.Context(), "n", 2)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: id})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, seen)
	assert.Empty(t, w.Result().Cookies(), "updates do not touch the credential")
	assert.Equal(t, 1, store.count("update"))
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := session.FromContext(ctx)
	assert.False(t, ok)
}

// duplexRecorder records whether full duplex was enabled through it.
type duplexRecorder struct {
	*httptest.ResponseRecorder
	duplex bool
}

func (d *duplexRecorder) EnableFullDuplex() error {
	d.duplex = true
	return nil
}

func TestMiddleware_ResponseControllerReachesWrappedWriter(t *testing.T) {
	mgr := session.NewManager(newSpyStore(), cookie.New("sid"))
	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, http.NewResponseController(w).EnableFullDuplex())
	}))

	rec := &duplexRecorder{ResponseRecorder: httptest.NewRecorder()}
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, rec.duplex)
}
