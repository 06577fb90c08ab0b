package arenadto

// Event types published on the broadcast channel.
const (
	EventMatchFound   = "match-found"
	EventStateUpdated = "state-updated"
)

// MatchFoundPayload goes out on the lobby topic when a pairing succeeds.
type MatchFoundPayload struct {
	MatchID string     `json:"match_id"`
	White   PlayerInfo `json:"white"`
	Black   PlayerInfo `json:"black"`
}

// StateUpdatedPayload goes out on the match topic after every accepted
// move or resignation. Observers treat it as a hint and can always
// reconcile by re-reading the match record.
type StateUpdatedPayload struct {
	MatchID  string      `json:"match_id"`
	Position string      `json:"position"`
	Turn     string      `json:"turn"`
	LastMove *PlayedMove `json:"last_move,omitempty"`
	Status   string      `json:"status"`
	Winner   string      `json:"winner,omitempty"`
	Reason   string      `json:"termination_reason,omitempty"`
}
