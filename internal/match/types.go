package match

import (
	"time"
)

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Status is the match lifecycle state. ACTIVE transitions to FINISHED
// exactly once and FINISHED is absorbing.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Winner values. Empty means the match is still active.
const (
	WinnerWhite = "white"
	WinnerBlack = "black"
	WinnerDraw  = "draw"
)

// Reason is the termination reason recorded with the status flip.
type Reason string

const (
	ReasonCheckmate   Reason = "checkmate"
	ReasonStalemate   Reason = "stalemate"
	ReasonDrawRule    Reason = "draw-rule"
	ReasonResignation Reason = "resignation"
)

// Player is one side of a match: a stable participant identity plus
// display metadata captured at pairing time.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// LastMove is the most recently accepted move. Nil before the first move.
type LastMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
}

// Match is the authoritative record for one game, stored as JSON in
// Redis under match:<id>. Winner and Reason are set together with the
// single ACTIVE -> FINISHED transition and never unset.
type Match struct {
	ID        string    `json:"id"`
	White     Player    `json:"white"`
	Black     Player    `json:"black"`
	Position  string    `json:"position"`
	Turn      Color     `json:"turn"`
	Status    Status    `json:"status"`
	LastMove  *LastMove `json:"last_move,omitempty"`
	Winner    string    `json:"winner,omitempty"`
	Reason    Reason    `json:"termination_reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SideOf maps a participant id to its side. ok is false for outsiders.
func (m *Match) SideOf(participant string) (Color, bool) {
	switch participant {
	case m.White.ID:
		return White, true
	case m.Black.ID:
		return Black, true
	}
	return "", false
}

// PlayerFor returns the Player on the given side.
func (m *Match) PlayerFor(c Color) Player {
	if c == White {
		return m.White
	}
	return m.Black
}
