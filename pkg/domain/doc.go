/*
Package domain contains the core session models shared by the session manager,
the ports and the adapters.

It is kept free of I/O: stores and transports live behind the interfaces of
package ports.

# Key Entities

  - Session: the persisted record of a session (ID, Variables, Version).
  - SessionEvent / LifecycleHooks: observability callbacks fired by the manager.
  - Errors: ErrSessionNotFound, ErrStoreUnavailable, ErrInvalidState, ErrWriteConflict.
*/
package domain
