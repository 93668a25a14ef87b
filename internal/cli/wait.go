package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/yurt/pkg/ports"
	"github.com/cenkalti/backoff/v4"
)

// WaitForStore pings store until it answers, backing off exponentially up to
// maxWait. Stores without Ping are ready immediately.
func WaitForStore(ctx context.Context, store ports.SessionStore, maxWait time.Duration, logger *slog.Logger) error {
	p, ok := store.(ports.Pinger)
	if !ok {
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = maxWait

	op := func() error {
		return p.Ping(ctx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("Session store not ready", "err", err, "retry_in", next)
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}
