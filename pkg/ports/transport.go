package ports

import (
	"net/http"
	"time"
)

// CredentialAttributes holds the policy applied to the credential carrying the session ID.
type CredentialAttributes struct {
	HTTPOnly bool
	Secure   bool
	Domain   string
	Path     string
	SameSite http.SameSite
}

// Transport carries the session ID between client and server.
type Transport interface {
	// ExtractID returns the session ID sent with the request, if any.
	ExtractID(r *http.Request) (string, bool)

	// SetCredential instructs the client to send id on later requests.
	// A zero expires means the credential lasts for the client session.
	SetCredential(w http.ResponseWriter, id string, expires time.Time, attrs CredentialAttributes)

	// ClearCredential instructs the client to forget the credential.
	ClearCredential(w http.ResponseWriter, attrs CredentialAttributes)
}
