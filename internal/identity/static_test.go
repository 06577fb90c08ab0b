package identity

import (
	"context"
	"errors"
	"testing"
)

func TestStaticResolve(t *testing.T) {
	s := NewStatic()
	s.Add("tok-a", Profile{ID: "alice", DisplayName: "Alice"})

	p, err := s.Resolve(context.Background(), "tok-a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ID != "alice" || p.DisplayName != "Alice" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if _, err := s.Resolve(context.Background(), "nope"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := s.Resolve(context.Background(), "  "); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for blank token, got %v", err)
	}
}

func TestStaticLookup(t *testing.T) {
	s := NewStatic()
	s.Add("tok-a", Profile{ID: "alice", DisplayName: "Alice"})

	p, err := s.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.DisplayName != "Alice" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if _, err := s.Lookup(context.Background(), "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPassthrough(t *testing.T) {
	s := NewPassthrough()
	p, err := s.Resolve(context.Background(), "any-token")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ID != "any-token" {
		t.Fatalf("passthrough should echo the token, got %+v", p)
	}
	if _, err := s.Resolve(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("empty token must still fail, got %v", err)
	}
}
