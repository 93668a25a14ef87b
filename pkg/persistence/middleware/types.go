package middleware

import (
	"context"

	"github.com/aretw0/yurt/pkg/ports"
)

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Wrap applies mws to store. The first middleware is the outermost one.
func Wrap(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// ping forwards a health check to next when it supports one.
func ping(ctx context.Context, next ports.SessionStore) error {
	if p, ok := next.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
