package domain

import "time"

// Session is the persisted view of a session: its variables keyed by ID.
type Session struct {
	ID        string         `json:"id" cbor:"id"`
	Variables map[string]any `json:"variables" cbor:"variables"`

	// Version is 1 after insert and grows by one on every update.
	// An Update carrying a Version > 0 is rejected with ErrWriteConflict
	// when it does not match the stored one.
	Version int64 `json:"version" cbor:"version"`

	UpdatedAt time.Time `json:"updated_at" cbor:"updated_at"`
}

// NewSession creates a Session holding a copy of vars.
func NewSession(id string, vars map[string]any) *Session {
	return &Session{
		ID:        id,
		Variables: CopyVariables(vars),
	}
}

// Clone returns a copy of s that shares no maps with it.
func (s *Session) Clone() *Session {
	c := *s
	c.Variables = CopyVariables(s.Variables)
	return &c
}

// CopyVariables deep copies nested maps and slices of vars.
// Other values are copied shallowly.
func CopyVariables(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyVariables(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = copyValue(e)
		}
		return s
	default:
		return v
	}
}
