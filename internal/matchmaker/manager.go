package matchmaker

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/broadcast"
	"github.com/kapu/chess-arena/internal/identity"
	"github.com/kapu/chess-arena/internal/match"
	"github.com/kapu/chess-arena/internal/obslog"
	"github.com/kapu/chess-arena/pkg/arenadto"
)

// claimRetries bounds optimistic retries when joins contend on the slot.
const claimRetries = 5

// Manager owns the pairing pool. A join either arms the waiting slot
// or consumes it and creates a match through the match manager.
type Manager struct {
	slots    *slotStore
	provider identity.Provider
	matches  *match.Manager
	bus      broadcast.Publisher
}

func NewManager(rdb *redis.Client, queueTTL time.Duration, provider identity.Provider, matches *match.Manager, bus broadcast.Publisher) *Manager {
	return &Manager{
		slots:    newSlotStore(rdb, queueTTL),
		provider: provider,
		matches:  matches,
		bus:      bus,
	}
}

// Join resolves the caller, then settles the waiting slot atomically.
// The identity lookup happens before any pool mutation.
func (m *Manager) Join(ctx context.Context, token string) (*JoinResult, error) {
	profile, err := m.provider.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, identity.ErrUnauthenticated) {
			obslog.L().Warn("identity_resolve_error", zap.Error(err))
		}
		return nil, arenadto.ErrUnknownParticipant
	}

	self := WaitingEntry{
		Participant: profile.ID,
		DisplayName: profile.DisplayName,
		EnqueuedAt:  time.Now(),
	}

	for attempt := 0; attempt < claimRetries; attempt++ {
		opponent, err := m.slots.claim(ctx, self)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			obslog.L().Error("slot_claim_error", zap.String("participant", profile.ID), zap.Error(err))
			return nil, arenadto.ErrStoreUnavailable
		}
		if opponent == nil {
			obslog.L().Info("join_waiting", zap.String("participant", profile.ID))
			return &JoinResult{Status: StatusWaiting}, nil
		}
		return m.pair(ctx, profile, opponent)
	}
	return nil, arenadto.ErrStoreUnavailable
}

// Withdraw removes the caller's waiting entry, if present.
func (m *Manager) Withdraw(ctx context.Context, participant string) (bool, error) {
	removed, err := m.slots.withdraw(ctx, participant)
	if err != nil {
		obslog.L().Error("slot_withdraw_error", zap.String("participant", participant), zap.Error(err))
		return false, arenadto.ErrStoreUnavailable
	}
	if removed {
		obslog.L().Info("join_withdraw", zap.String("participant", participant))
	}
	return removed, nil
}

// pair creates the match between the claimed waiter and the joiner.
// Sides are assigned by an unbiased coin flip.
func (m *Manager) pair(ctx context.Context, joiner *identity.Profile, waiting *WaitingEntry) (*JoinResult, error) {
	joinerPlayer := match.Player{ID: joiner.ID, DisplayName: joiner.DisplayName, AvatarURL: joiner.AvatarURL}
	waiterPlayer := m.decorate(ctx, waiting)

	white, black := joinerPlayer, waiterPlayer
	if coinFlip(rand.Reader) {
		white, black = waiterPlayer, joinerPlayer
	}

	g, err := m.matches.Create(ctx, white, black)
	if err != nil {
		// Put the waiter back so a transient failure does not silently
		// drop them from the pool.
		if rerr := m.slots.restore(ctx, *waiting); rerr != nil {
			obslog.L().Error("slot_restore_error", zap.String("participant", waiting.Participant), zap.Error(rerr))
		}
		return nil, err
	}

	ev := broadcast.Event{
		Type: arenadto.EventMatchFound,
		Payload: arenadto.MatchFoundPayload{
			MatchID: g.ID,
			White:   arenadto.PlayerInfo{ID: g.White.ID, DisplayName: g.White.DisplayName, AvatarURL: g.White.AvatarURL},
			Black:   arenadto.PlayerInfo{ID: g.Black.ID, DisplayName: g.Black.DisplayName, AvatarURL: g.Black.AvatarURL},
		},
	}
	if err := m.bus.Publish(ctx, broadcast.TopicLobby, ev); err != nil {
		obslog.L().Warn("broadcast_error",
			zap.String("code", arenadto.ErrBroadcastFailed.Code),
			zap.String("match_id", g.ID),
			zap.Error(err),
		)
	}

	color := match.White
	if g.Black.ID == joiner.ID {
		color = match.Black
	}
	obslog.L().Info("match_found",
		zap.String("match_id", g.ID),
		zap.String("white_id", g.White.ID),
		zap.String("black_id", g.Black.ID),
	)
	return &JoinResult{Status: StatusMatched, Match: g, Color: color}, nil
}

// decorate resolves display metadata for the waiting participant.
// Best effort: a provider failure falls back to what the entry carried.
func (m *Manager) decorate(ctx context.Context, entry *WaitingEntry) match.Player {
	p := match.Player{ID: entry.Participant, DisplayName: entry.DisplayName}
	if profile, err := m.provider.Lookup(ctx, entry.Participant); err == nil && profile != nil {
		if profile.DisplayName != "" {
			p.DisplayName = profile.DisplayName
		}
		p.AvatarURL = profile.AvatarURL
	}
	return p
}

// coinFlip reports whether the waiting side takes white. A failed
// reader is logged and leaves the joiner on white.
func coinFlip(r io.Reader) bool {
	n, err := rand.Int(r, big.NewInt(2))
	if err != nil {
		obslog.L().Warn("coinflip_error", zap.Error(err))
		return false
	}
	return n.Int64() == 0
}
