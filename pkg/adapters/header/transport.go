// Package header carries the session ID in HTTP headers, for API clients
// that do not keep cookies.
package header

import (
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/yurt/pkg/ports"
)

const (
	// DefaultName is the request and response header holding the session ID.
	DefaultName = "X-Session-Id"

	// ExpiresHeader announces when a credential set by SetCredential expires.
	ExpiresHeader = "X-Session-Expires"
)

// Transport implements ports.Transport with a header.
// An empty response header tells the client to drop its credential.
// Cookie attributes do not apply and are ignored.
type Transport struct {
	Name string
}

// New creates a header Transport. An empty name means DefaultName.
func New(name string) *Transport {
	if name == "" {
		name = DefaultName
	}
	return &Transport{Name: http.CanonicalHeaderKey(name)}
}

// ExtractID returns the session header of the request.
func (t *Transport) ExtractID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(t.Name))
	return id, id != ""
}

// SetCredential sends id back in the session header.
func (t *Transport) SetCredential(w http.ResponseWriter, id string, expires time.Time, _ ports.CredentialAttributes) {
	w.Header().Set(t.Name, id)
	if !expires.IsZero() {
		w.Header().Set(ExpiresHeader, expires.UTC().Format(http.TimeFormat))
	}
}

// ClearCredential sends an empty session header.
func (t *Transport) ClearCredential(w http.ResponseWriter, _ ports.CredentialAttributes) {
	w.Header()[t.Name] = []string{""}
	w.Header().Del(ExpiresHeader)
}

var _ ports.Transport = (*Transport)(nil)
