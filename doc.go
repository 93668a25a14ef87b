/*
Package yurt provides server-side HTTP sessions that are loaded lazily and
written back only when they change.

A request carries nothing but an opaque session ID, sent by the client in a
cookie or a header. The Manager in package session turns that ID into a
Record: its variables are fetched from the store on first access, never
before, and the store is only written when a variable was mutated. A request
that never touches its session costs no store round trip at all.

# Layout

  - pkg/session: Manager, Record and the net/http middleware.
  - pkg/lazy: the lazily populated map behind every Record.
  - pkg/ports: the SessionStore and Transport contracts.
  - pkg/adapters: stores (memory, file, redis, bolt, postgres), transports
    (cookie, header) and the HTTP API.
  - pkg/persistence/middleware: store decorators for encryption and PII masking.
  - pkg/observability: Prometheus metrics and structured logs from lifecycle hooks.
  - cmd/yurt: a session server and store maintenance CLI.

# Usage

	store := memory.NewStore()
	mgr := session.NewManager(store, cookie.New("session"))

	http.Handle("/", mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, _ := session.FromContext(r.Context())
		_ = rec.Set(r.Context(), "user", "alice")
	})))

Stores wrapped with middleware.Wrap keep the SessionStore contract, so
encryption at rest and PII masking need no change in the handlers.
*/
package yurt
