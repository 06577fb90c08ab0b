package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/kapu/chess-arena/internal/match"
	"github.com/kapu/chess-arena/internal/matchmaker"
	"github.com/kapu/chess-arena/internal/obslog"
	"github.com/kapu/chess-arena/internal/rules"
	"github.com/kapu/chess-arena/pkg/arenadto"
)

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := s.mm.Join(r.Context(), bearerToken(r))
	if err != nil {
		writeErr(w, err)
		return
	}

	out := arenadto.JoinResponse{Status: string(res.Status)}
	if res.Status == matchmaker.StatusMatched {
		out.MatchID = res.Match.ID
		out.Color = string(res.Color)
		opp := res.Match.PlayerFor(res.Color.Opposite())
		out.Opponent = &arenadto.PlayerInfo{ID: opp.ID, DisplayName: opp.DisplayName, AvatarURL: opp.AvatarURL}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	participant, err := s.resolve(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	removed, err := s.mm.Withdraw(r.Context(), participant)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	g, err := s.matches.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchState(g))
}

func (s *Server) handleSubmitMove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	participant, err := s.resolve(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req arenadto.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, arenadto.ErrIllegalMove)
		return
	}

	mv := rules.Move{From: req.From, To: req.To, Promotion: req.Promotion}
	g, err := s.matches.SubmitMove(r.Context(), ps.ByName("id"), participant, mv)
	if err != nil {
		writeErr(w, err)
		return
	}
	// The new state reaches every observer, mover included, via the
	// broadcast; the response only acknowledges acceptance.
	writeJSON(w, http.StatusOK, map[string]string{"status": string(g.Status)})
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	participant, err := s.resolve(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	g, err := s.matches.Resign(r.Context(), ps.ByName("id"), participant)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(g.Status)})
}

// resolve authenticates the caller and returns the participant id.
func (s *Server) resolve(r *http.Request) (string, error) {
	profile, err := s.provider.Resolve(r.Context(), bearerToken(r))
	if err != nil {
		return "", arenadto.ErrUnknownParticipant
	}
	return profile.ID, nil
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func matchState(g *match.Match) arenadto.MatchState {
	out := arenadto.MatchState{
		MatchID:  g.ID,
		White:    arenadto.PlayerInfo{ID: g.White.ID, DisplayName: g.White.DisplayName, AvatarURL: g.White.AvatarURL},
		Black:    arenadto.PlayerInfo{ID: g.Black.ID, DisplayName: g.Black.DisplayName, AvatarURL: g.Black.AvatarURL},
		Position: g.Position,
		Turn:     string(g.Turn),
		Status:   string(g.Status),
		Winner:   g.Winner,
		Reason:   string(g.Reason),
	}
	if g.LastMove != nil {
		out.LastMove = &arenadto.PlayedMove{From: g.LastMove.From, To: g.LastMove.To, Promotion: g.LastMove.Promotion, SAN: g.LastMove.SAN}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("response_encode_error", zap.Error(err))
	}
}

func writeErr(w http.ResponseWriter, err error) {
	var de *arenadto.DomainError
	if !errors.As(err, &de) {
		de = &arenadto.DomainError{Code: "internal", Message: "internal error"}
	}
	writeJSON(w, statusFor(de.Code), arenadto.ErrorResponse{
		Error: arenadto.ErrorBody{Code: de.Code, Message: de.Message, Retryable: de.Retryable},
	})
}

func statusFor(code string) int {
	switch code {
	case arenadto.CodeUnknownParticipant:
		return http.StatusUnauthorized
	case arenadto.CodeMatchNotFound:
		return http.StatusNotFound
	case arenadto.CodeNotAParticipant:
		return http.StatusForbidden
	case arenadto.CodeNotYourTurn, arenadto.CodeGameAlreadyOver:
		return http.StatusConflict
	case arenadto.CodeIllegalMove:
		return http.StatusUnprocessableEntity
	case arenadto.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
