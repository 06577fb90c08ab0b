package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/archive"
	"github.com/kapu/chess-arena/internal/broadcast"
	"github.com/kapu/chess-arena/internal/obslog"
	"github.com/kapu/chess-arena/internal/rules"
	"github.com/kapu/chess-arena/pkg/arenadto"
)

// Manager owns the lifecycle of match records: creation at pairing
// time, validated moves, resignation, and the terminal transition.
// Correctness under concurrent submissions comes from the store's
// optimistic transactions, not from locking here.
type Manager struct {
	store  *Store
	engine rules.Engine
	bus    broadcast.Publisher
	repo   *archive.Repository
}

func NewManager(store *Store, engine rules.Engine, bus broadcast.Publisher) *Manager {
	return &Manager{store: store, engine: engine, bus: bus}
}

// AttachArchive wires the optional results archive. Without it the
// terminal record lives only in the state store.
func (m *Manager) AttachArchive(r *archive.Repository) {
	m.repo = r
}

// Create persists a fresh match between two distinct participants.
// Side assignment happens upstream in the matchmaker.
func (m *Manager) Create(ctx context.Context, white, black Player) (*Match, error) {
	if strings.TrimSpace(white.ID) == "" || strings.TrimSpace(black.ID) == "" {
		return nil, fmt.Errorf("match: both participants required")
	}
	if white.ID == black.ID {
		return nil, fmt.Errorf("match: participants must be distinct")
	}

	now := time.Now()
	g := &Match{
		ID:        uuid.NewString(),
		White:     white,
		Black:     black,
		Position:  rules.StartPosition,
		Turn:      White,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, g); err != nil {
		obslog.L().Error("match_create_error", zap.Error(err))
		return nil, arenadto.ErrStoreUnavailable
	}
	obslog.L().Info("match_create",
		zap.String("match_id", g.ID),
		zap.String("white_id", g.White.ID),
		zap.String("black_id", g.Black.ID),
	)
	return g, nil
}

// Get returns the authoritative record for observer reconciliation.
func (m *Manager) Get(ctx context.Context, matchID string) (*Match, error) {
	g, err := m.store.Load(ctx, matchID)
	if errors.Is(err, ErrNotFound) {
		return nil, arenadto.ErrMatchNotFound
	}
	if err != nil {
		obslog.L().Error("match_load_error", zap.String("match_id", matchID), zap.Error(err))
		return nil, arenadto.ErrStoreUnavailable
	}
	return g, nil
}

// SubmitMove validates and applies one move for the given participant.
// On success the updated record has been persisted and a state-updated
// event published; the persisted mutation is never rolled back for a
// broadcast failure.
func (m *Manager) SubmitMove(ctx context.Context, matchID, participant string, mv rules.Move) (*Match, error) {
	updated, err := m.store.UpdateActive(ctx, matchID, func(cur *Match) error {
		if cur.Status != StatusActive {
			return arenadto.ErrGameAlreadyOver
		}
		side, ok := cur.SideOf(participant)
		if !ok {
			return arenadto.ErrNotAParticipant
		}
		if side != cur.Turn {
			return arenadto.ErrNotYourTurn
		}

		res, err := m.engine.ApplyMove(cur.Position, mv)
		if errors.Is(err, rules.ErrIllegalMove) {
			return arenadto.ErrIllegalMove
		}
		if err != nil {
			return err
		}

		cur.Position = res.Position
		cur.Turn = Color(res.Turn)
		cur.LastMove = &LastMove{From: mv.From, To: mv.To, Promotion: mv.Promotion, SAN: res.SAN}
		switch {
		case res.IsCheckmate:
			// The side that just moved delivered mate.
			cur.Status = StatusFinished
			cur.Winner = string(side)
			cur.Reason = ReasonCheckmate
		case res.IsStalemate:
			cur.Status = StatusFinished
			cur.Winner = WinnerDraw
			cur.Reason = ReasonStalemate
		case res.IsOtherDraw:
			cur.Status = StatusFinished
			cur.Winner = WinnerDraw
			cur.Reason = ReasonDrawRule
		}
		return nil
	})
	if err != nil {
		return nil, m.mapUpdateErr(ctx, matchID, err)
	}

	obslog.L().Info("move_accept",
		zap.String("match_id", updated.ID),
		zap.String("participant", participant),
		zap.String("san", updated.LastMove.SAN),
		zap.String("turn", string(updated.Turn)),
		zap.String("status", string(updated.Status)),
	)
	m.publishState(ctx, updated)
	m.archiveIfFinished(ctx, updated)
	return updated, nil
}

// Resign finishes the match in favour of the opposite side. The last
// accepted move is left untouched.
func (m *Manager) Resign(ctx context.Context, matchID, participant string) (*Match, error) {
	updated, err := m.store.UpdateActive(ctx, matchID, func(cur *Match) error {
		if cur.Status != StatusActive {
			return arenadto.ErrGameAlreadyOver
		}
		side, ok := cur.SideOf(participant)
		if !ok {
			return arenadto.ErrNotAParticipant
		}
		cur.Status = StatusFinished
		cur.Winner = string(side.Opposite())
		cur.Reason = ReasonResignation
		return nil
	})
	if err != nil {
		return nil, m.mapUpdateErr(ctx, matchID, err)
	}

	obslog.L().Info("resign",
		zap.String("match_id", updated.ID),
		zap.String("resigner", participant),
		zap.String("winner", updated.Winner),
	)
	m.publishState(ctx, updated)
	m.archiveIfFinished(ctx, updated)
	return updated, nil
}

// mapUpdateErr turns store-level failures into caller-facing kinds.
// A lost optimistic race is re-read: a concurrently finished match is
// game_already_over, anything else is a retryable store error.
func (m *Manager) mapUpdateErr(ctx context.Context, matchID string, err error) error {
	var de *arenadto.DomainError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, ErrNotFound) {
		return arenadto.ErrMatchNotFound
	}
	if errors.Is(err, ErrConflict) {
		if g, lerr := m.store.Load(ctx, matchID); lerr == nil && g.Status == StatusFinished {
			return arenadto.ErrGameAlreadyOver
		}
		return arenadto.ErrStoreUnavailable
	}
	obslog.L().Error("match_update_error", zap.String("match_id", matchID), zap.Error(err))
	return arenadto.ErrStoreUnavailable
}

func (m *Manager) publishState(ctx context.Context, g *Match) {
	payload := arenadto.StateUpdatedPayload{
		MatchID:  g.ID,
		Position: g.Position,
		Turn:     string(g.Turn),
		Status:   string(g.Status),
		Winner:   g.Winner,
		Reason:   string(g.Reason),
	}
	if g.LastMove != nil {
		payload.LastMove = &arenadto.PlayedMove{
			From:      g.LastMove.From,
			To:        g.LastMove.To,
			Promotion: g.LastMove.Promotion,
			SAN:       g.LastMove.SAN,
		}
	}
	ev := broadcast.Event{Type: arenadto.EventStateUpdated, Payload: payload}
	if err := m.bus.Publish(ctx, broadcast.MatchTopic(g.ID), ev); err != nil {
		// The store is the source of truth; observers reconcile by
		// re-reading the record.
		obslog.L().Warn("broadcast_error",
			zap.String("code", arenadto.ErrBroadcastFailed.Code),
			zap.String("match_id", g.ID),
			zap.Error(err),
		)
	}
}

func (m *Manager) archiveIfFinished(ctx context.Context, g *Match) {
	if m.repo == nil || g.Status != StatusFinished {
		return
	}
	res := &archive.Result{
		MatchID:       g.ID,
		WhiteID:       g.White.ID,
		WhiteName:     g.White.DisplayName,
		BlackID:       g.Black.ID,
		BlackName:     g.Black.DisplayName,
		Winner:        g.Winner,
		Termination:   string(g.Reason),
		FinalPosition: g.Position,
		StartedAt:     g.CreatedAt,
		EndedAt:       g.UpdatedAt,
	}
	if g.LastMove != nil {
		res.LastMoveSAN = g.LastMove.SAN
	}
	if err := m.repo.SaveResult(ctx, res); err != nil {
		obslog.L().Error("archive_error", zap.String("match_id", g.ID), zap.Error(err))
		return
	}
	obslog.L().Info("archive_result", zap.String("match_id", g.ID), zap.String("winner", g.Winner))
}
