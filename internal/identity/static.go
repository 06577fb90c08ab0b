package identity

import (
	"context"
	"strings"
	"sync"
)

// Static is an in-memory provider used in development and tests when
// no identity service is configured. Tokens map directly to profiles.
type Static struct {
	mu       sync.RWMutex
	byToken  map[string]Profile
	byID     map[string]Profile
	passthru bool
}

// NewStatic returns an empty static provider.
func NewStatic() *Static {
	return &Static{byToken: make(map[string]Profile), byID: make(map[string]Profile)}
}

// NewPassthrough returns a provider that accepts any non-empty token as
// the participant id itself. Development only.
func NewPassthrough() *Static {
	s := NewStatic()
	s.passthru = true
	return s
}

// Add registers a token for a profile.
func (s *Static) Add(token string, p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = p
	s.byID[p.ID] = p
}

func (s *Static) Resolve(_ context.Context, token string) (*Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.byToken[token]; ok {
		cp := p
		return &cp, nil
	}
	if s.passthru {
		return &Profile{ID: token}, nil
	}
	return nil, ErrUnauthenticated
}

func (s *Static) Lookup(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.byID[id]; ok {
		cp := p
		return &cp, nil
	}
	if s.passthru && strings.TrimSpace(id) != "" {
		return &Profile{ID: id}, nil
	}
	return nil, ErrNotFound
}
