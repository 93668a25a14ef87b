package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/yurt/pkg/domain"
)

// LogHooks logs every event on logger: failures at warn, the rest at debug.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(ctx context.Context, e *domain.SessionEvent) {
		attrs := []any{
			"event", e.Type,
			"session_id", e.SessionID,
			"new", e.New,
		}
		if e.Type == domain.EventLoad {
			attrs = append(attrs, "found", e.Found)
		}
		if e.Duration > 0 {
			attrs = append(attrs, "duration", e.Duration)
		}
		if e.Err != nil {
			logger.WarnContext(ctx, "session_event", append(attrs, "err", e.Err)...)
			return
		}
		logger.DebugContext(ctx, "session_event", attrs...)
	}
	return domain.LifecycleHooks{
		OnOpen:   log,
		OnLoad:   log,
		OnSave:   log,
		OnRemove: log,
	}
}

// Combine returns hooks that call each of hooks in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	pick := func(get func(domain.LifecycleHooks) func(context.Context, *domain.SessionEvent)) func(context.Context, *domain.SessionEvent) {
		var fns []func(context.Context, *domain.SessionEvent)
		for _, h := range hooks {
			if fn := get(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *domain.SessionEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return domain.LifecycleHooks{
		OnOpen:   pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnOpen }),
		OnLoad:   pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnLoad }),
		OnSave:   pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnSave }),
		OnRemove: pick(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnRemove }),
	}
}
