/*
Package session implements lazily loaded, write-if-dirty server side sessions.

A Manager turns every request into a Record. The Record keeps its variables in
a lazy.Map: nothing is read from the store until the handler first touches the
session, a new session never reads the store at all, and only a mutation marks
the session for writing. At response time Manager.Save inserts, updates, or
does nothing, and asks the Transport to set or clear the client credential.

	mgr := session.NewManager(store, cookie.New("session"))
	http.Handle("/", mgr.Middleware(handler))

	func handler(w http.ResponseWriter, r *http.Request) {
		rec, _ := session.FromContext(r.Context())
		if err := rec.Set(r.Context(), "user", "alice"); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

# Lifecycle

	NewUnloaded ──access──▶ NewLoaded
	ExistingUnloaded ──access/Find──▶ ExistingLoaded
	any ──Destroy──▶ Deleted (terminal, every later call fails with domain.ErrInvalidState)
	any ──Invalidate──▶ NewUnloaded with a fresh ID

Requests sharing one session ID are not serialized; see WithOptimisticConcurrency.
*/
package session
