package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counts flattens a gathered counter family to "label=value,..." keys.
func counts(t *testing.T, reg *prometheus.Registry, name string) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var labels []string
			for _, l := range metric.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			key := strings.Join(labels, ",")
			if c := metric.GetCounter(); c != nil {
				out[key] = c.GetValue()
			} else if h := metric.GetHistogram(); h != nil {
				out[key] = float64(h.GetSampleCount())
			}
		}
	}
	return out
}

func TestMetrics_CountsByEventAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnOpen(ctx, &domain.SessionEvent{Type: domain.EventOpen, New: true})
	hooks.OnLoad(ctx, &domain.SessionEvent{Type: domain.EventLoad, Found: true, Duration: time.Millisecond})
	hooks.OnLoad(ctx, &domain.SessionEvent{Type: domain.EventLoad})
	hooks.OnSave(ctx, &domain.SessionEvent{Type: domain.EventInsert, Err: errors.New("down")})

	assert.Equal(t, map[string]float64{
		"event=insert,outcome=error": 1,
		"event=load,outcome=miss":    1,
		"event=load,outcome=ok":      1,
		"event=open,outcome=ok":      1,
	}, counts(t, reg, "yurt_session_events_total"))

	// open is not timed
	assert.Equal(t, map[string]float64{
		"event=insert": 1,
		"event=load":   2,
	}, counts(t, reg, "yurt_session_store_duration_seconds"))
}

func TestNewMetrics_NilRegisterer(t *testing.T) {
	m := observability.NewMetrics(nil)
	assert.NotPanics(t, func() { m.Observe(&domain.SessionEvent{Type: domain.EventUpdate}) })
}

func TestLogHooks_LevelsFollowErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	hooks := observability.LogHooks(logger)
	ctx := context.Background()

	hooks.OnSave(ctx, &domain.SessionEvent{Type: domain.EventUpdate, SessionID: "quiet"})
	assert.Empty(t, buf.String())

	hooks.OnRemove(ctx, &domain.SessionEvent{Type: domain.EventDelete, SessionID: "loud", Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "session_id=loud")
	assert.Contains(t, buf.String(), "err=boom")
}

func TestCombine(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnOpen: func(context.Context, *domain.SessionEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnOpen: func(context.Context, *domain.SessionEvent) { calls = append(calls, "b") },
		OnLoad: func(context.Context, *domain.SessionEvent) { calls = append(calls, "b-load") },
	}

	hooks := observability.Combine(a, b)
	hooks.OnOpen(context.Background(), &domain.SessionEvent{})
	hooks.OnLoad(context.Background(), &domain.SessionEvent{})

	assert.Equal(t, []string{"a", "b", "b-load"}, calls)
	assert.Nil(t, hooks.OnSave)
	assert.Nil(t, hooks.OnRemove)
}
