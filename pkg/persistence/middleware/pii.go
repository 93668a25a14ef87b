package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/yurt/pkg/domain"
	"github.com/aretw0/yurt/pkg/ports"
)

// Mask replaces the values of masked keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, before they are written,
// the values of keys matching any of the patterns. Nested maps are masked too.
// Masking is one way: a masked value comes back as Mask.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) masked(session *domain.Session) *domain.Session {
	// Clone so the caller's variables stay intact.
	cloned := session.Clone()
	maskMap(cloned.Variables, m.patterns)
	return cloned
}

func (m *piiMiddleware) Find(ctx context.Context, id string) (*domain.Session, error) {
	return m.next.Find(ctx, id)
}

func (m *piiMiddleware) Insert(ctx context.Context, session *domain.Session) error {
	cloned := m.masked(session)
	if err := m.next.Insert(ctx, cloned); err != nil {
		return err
	}
	session.Version = cloned.Version
	return nil
}

func (m *piiMiddleware) Update(ctx context.Context, session *domain.Session) error {
	cloned := m.masked(session)
	if err := m.next.Update(ctx, cloned); err != nil {
		return err
	}
	session.Version = cloned.Version
	return nil
}

func (m *piiMiddleware) Remove(ctx context.Context, id string) error {
	return m.next.Remove(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) Ping(ctx context.Context) error {
	return ping(ctx, m.next)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}
