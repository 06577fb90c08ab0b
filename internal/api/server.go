package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/kapu/chess-arena/internal/broadcast"
	"github.com/kapu/chess-arena/internal/identity"
	"github.com/kapu/chess-arena/internal/match"
	"github.com/kapu/chess-arena/internal/matchmaker"
)

// Server exposes the caller-facing operations over HTTP plus a
// WebSocket subscription endpoint for broadcast observers.
type Server struct {
	provider identity.Provider
	mm       *matchmaker.Manager
	matches  *match.Manager
	bus      *broadcast.Bus

	mux *httprouter.Router
	srv *http.Server
}

func NewServer(addr string, provider identity.Provider, mm *matchmaker.Manager, matches *match.Manager, bus *broadcast.Bus) *Server {
	s := &Server{
		provider: provider,
		mm:       mm,
		matches:  matches,
		bus:      bus,
		mux:      httprouter.New(),
	}

	s.mux.POST("/v1/queue", s.handleJoin)
	s.mux.DELETE("/v1/queue", s.handleWithdraw)
	s.mux.GET("/v1/matches/:id", s.handleGetMatch)
	s.mux.POST("/v1/matches/:id/moves", s.handleSubmitMove)
	s.mux.POST("/v1/matches/:id/resign", s.handleResign)
	s.mux.GET("/v1/events", s.handleEvents)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }
