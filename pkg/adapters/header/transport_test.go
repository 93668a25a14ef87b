package header_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/yurt/pkg/adapters/header"
	"github.com/aretw0/yurt/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestTransport_RoundTrip(t *testing.T) {
	tr := header.New("x-session-id")
	assert.Equal(t, "X-Session-Id", tr.Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := tr.ExtractID(req)
	assert.False(t, ok)

	req.Header.Set("X-Session-Id", "  abc  ")
	id, ok := tr.ExtractID(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	rec := httptest.NewRecorder()
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.SetCredential(rec, "abc", expires, ports.CredentialAttributes{})
	assert.Equal(t, "abc", rec.Header().Get("X-Session-Id"))
	assert.Equal(t, "Wed, 02 Jan 2030 03:04:05 GMT", rec.Header().Get(header.ExpiresHeader))

	tr.ClearCredential(rec, ports.CredentialAttributes{})
	values, present := rec.Header()["X-Session-Id"]
	assert.True(t, present)
	assert.Equal(t, []string{""}, values)
	assert.Empty(t, rec.Header().Get(header.ExpiresHeader))
}
