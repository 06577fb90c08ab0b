package matchmaker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const slotKey = "mm:slot"

// slotStore owns the single waiting slot. Every operation is one
// optimistic WATCH transaction so the read that observes the slot and
// the write that settles it are a single atomic step; two concurrent
// joiners can never both see the same occupant or both be told
// "waiting" while one of them is silently displaced.
type slotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func newSlotStore(rdb *redis.Client, ttl time.Duration) *slotStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &slotStore{rdb: rdb, ttl: ttl}
}

// claim settles the slot for self in one transaction. Empty slot or a
// slot already held by self arms it with self and returns nil; a slot
// held by someone else is cleared and that entry returned. A lost race
// surfaces as redis.TxFailedErr for the caller to retry.
func (s *slotStore) claim(ctx context.Context, self WaitingEntry) (*WaitingEntry, error) {
	var opponent *WaitingEntry

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		opponent = nil
		raw, err := tx.Get(ctx, slotKey).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}

		var cur *WaitingEntry
		if err != redis.Nil {
			var e WaitingEntry
			if jerr := json.Unmarshal(raw, &e); jerr == nil && e.Participant != "" {
				cur = &e
			}
			// An unreadable entry is treated as an empty slot.
		}

		pipe := tx.TxPipeline()
		if cur == nil || cur.Participant == self.Participant {
			// Re-arming on a duplicate request refreshes the TTL
			// without creating a self-match.
			selfRaw, jerr := json.Marshal(&self)
			if jerr != nil {
				return jerr
			}
			pipe.Set(ctx, slotKey, selfRaw, s.ttl)
		} else {
			opponent = cur
			pipe.Del(ctx, slotKey)
		}
		_, err = pipe.Exec(ctx)
		return err
	}, slotKey)

	if err != nil {
		return nil, err
	}
	return opponent, nil
}

// restore puts a previously claimed entry back, but only into an empty
// slot; a newer waiter is never displaced.
func (s *slotStore) restore(ctx context.Context, entry WaitingEntry) error {
	raw, err := json.Marshal(&entry)
	if err != nil {
		return err
	}
	return s.rdb.SetNX(ctx, slotKey, raw, s.ttl).Err()
}

// withdraw clears the slot iff it is held by the given participant.
func (s *slotStore) withdraw(ctx context.Context, participant string) (bool, error) {
	removed := false

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		removed = false
		raw, err := tx.Get(ctx, slotKey).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var e WaitingEntry
		if jerr := json.Unmarshal(raw, &e); jerr != nil || e.Participant != participant {
			return nil
		}
		pipe := tx.TxPipeline()
		pipe.Del(ctx, slotKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		removed = true
		return nil
	}, slotKey)

	if err != nil {
		return false, err
	}
	return removed, nil
}
