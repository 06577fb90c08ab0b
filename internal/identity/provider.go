package identity

import (
	"context"
	"errors"
)

// Profile is the display metadata the identity provider owns. The core
// never stores it; it only decorates outgoing events and responses.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

var (
	// ErrUnauthenticated means the token did not resolve to an account.
	ErrUnauthenticated = errors.New("identity: unauthenticated")
	// ErrNotFound means a lookup by id matched no account.
	ErrNotFound = errors.New("identity: profile not found")
)

// Provider resolves callers to stable account identities.
//
// Resolve maps a bearer token to the caller's profile and is the only
// authentication step the core performs. Lookup fetches display
// metadata for an already-known participant id; callers treat its
// failure as best-effort (metadata absence never fails an operation).
type Provider interface {
	Resolve(ctx context.Context, token string) (*Profile, error)
	Lookup(ctx context.Context, id string) (*Profile, error)
}
