package match

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound means no record exists under the match key.
	ErrNotFound = errors.New("match: not found")
	// ErrConflict means a concurrent writer won the optimistic check.
	ErrConflict = errors.New("match: concurrent update")
)

// Store persists match records in Redis. All mutation goes through
// UpdateActive so that load-validate-persist is a single optimistic
// transaction; there is no in-process lock shared between callers.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) key(id string) string { return "match:" + strings.TrimSpace(id) }

// Save writes a match record unconditionally. Used only at creation,
// before the id has been handed to anyone.
func (s *Store) Save(ctx context.Context, m *Match) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(m.ID), raw, s.ttl).Err()
}

// Load returns the record or ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*Match, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateActive loads the record under WATCH, applies fn, and persists
// the mutation only if no concurrent writer touched the key. fn errors
// abort the transaction and are returned verbatim; a lost race returns
// ErrConflict.
func (s *Store) UpdateActive(ctx context.Context, id string, fn func(*Match) error) (*Match, error) {
	key := s.key(id)
	var out *Match

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur Match
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}

		if err := fn(&cur); err != nil {
			return err
		}
		cur.UpdatedAt = time.Now()

		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, s.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = &cur
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
