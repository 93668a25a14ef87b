/*
Package observability turns session lifecycle events into metrics and logs.

Metrics.Hooks and LogHooks both return domain.LifecycleHooks, so they plug into
session.WithHooks; Combine chains several of them:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))
	mgr := session.NewManager(store, transport, session.WithHooks(hooks))
*/
package observability
