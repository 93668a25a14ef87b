package session

import "context"

type contextKey string

const recordKey = contextKey("YURT_SESSION")

// NewContext returns a copy of ctx carrying rec.
func NewContext(ctx context.Context, rec *Record) context.Context {
	return context.WithValue(ctx, recordKey, rec)
}

// FromContext returns the Record stored in ctx by the Manager middleware.
func FromContext(ctx context.Context) (*Record, bool) {
	rec, ok := ctx.Value(recordKey).(*Record)
	return rec, ok && rec != nil
}
