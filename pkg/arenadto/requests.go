package arenadto

// MoveRequest is one candidate move in two-character square notation.
// Promotion is a piece letter ("q", "r", "b", "n") and may be empty.
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// JoinResponse reports the pool outcome for one join request.
// Status is "waiting" or "matched"; the match fields are set only when
// matched. Color tells the requester its own side.
type JoinResponse struct {
	Status   string      `json:"status"`
	MatchID  string      `json:"match_id,omitempty"`
	Color    string      `json:"color,omitempty"`
	Opponent *PlayerInfo `json:"opponent,omitempty"`
}

// MatchState is the caller-visible snapshot of one match record.
type MatchState struct {
	MatchID  string      `json:"match_id"`
	White    PlayerInfo  `json:"white"`
	Black    PlayerInfo  `json:"black"`
	Position string      `json:"position"`
	Turn     string      `json:"turn"`
	Status   string      `json:"status"`
	LastMove *PlayedMove `json:"last_move,omitempty"`
	Winner   string      `json:"winner,omitempty"`
	Reason   string      `json:"termination_reason,omitempty"`
}

// PlayerInfo is display metadata resolved from the identity provider.
// Absence of metadata never fails an operation.
type PlayerInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// PlayedMove is the most recently accepted move plus its SAN text.
type PlayedMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	SAN       string `json:"san"`
}

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
