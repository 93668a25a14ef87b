/*
Package ports defines the driven ports (interfaces) of the session manager.

These interfaces decouple the session lifecycle from the storage technology and
from the way the session ID travels with requests.

# Key Interfaces

  - SessionStore: finds, inserts, updates and removes persisted sessions.
  - Transport: extracts the session ID from a request and sets or clears it on a response.
  - Pinger: optional reachability check used for readiness probes.

RunSessionStoreContract is a reusable test suite every SessionStore adapter runs.
*/
package ports
