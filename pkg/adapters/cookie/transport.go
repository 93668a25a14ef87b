// Package cookie carries the session ID in an HTTP cookie.
package cookie

import (
	"net/http"
	"time"

	"github.com/aretw0/yurt/pkg/ports"
)

// DefaultName is the cookie name used when none is configured.
const DefaultName = "session"

// Transport implements ports.Transport with a cookie.
type Transport struct {
	Name string
}

// New creates a cookie Transport. An empty name means DefaultName.
func New(name string) *Transport {
	if name == "" {
		name = DefaultName
	}
	return &Transport{Name: name}
}

// ExtractID returns the value of the session cookie.
func (t *Transport) ExtractID(r *http.Request) (string, bool) {
	c, err := r.Cookie(t.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetCredential adds a Set-Cookie header carrying id.
// Only Expires is set, so the lifetime follows the clock that computed expires.
func (t *Transport) SetCredential(w http.ResponseWriter, id string, expires time.Time, attrs ports.CredentialAttributes) {
	c := &http.Cookie{
		Name:     t.Name,
		Value:    id,
		Path:     attrs.Path,
		Domain:   attrs.Domain,
		Secure:   attrs.Secure,
		HttpOnly: attrs.HTTPOnly,
		SameSite: attrs.SameSite,
	}
	if !expires.IsZero() {
		c.Expires = expires.UTC()
	}
	http.SetCookie(w, c)
}

// ClearCredential adds a Set-Cookie header expiring the session cookie.
// Domain and Path must match the ones used to set it.
func (t *Transport) ClearCredential(w http.ResponseWriter, attrs ports.CredentialAttributes) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.Name,
		Value:    "",
		Path:     attrs.Path,
		Domain:   attrs.Domain,
		Secure:   attrs.Secure,
		HttpOnly: attrs.HTTPOnly,
		SameSite: attrs.SameSite,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

var _ ports.Transport = (*Transport)(nil)
