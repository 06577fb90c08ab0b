package matchmaker

import (
	"time"

	"github.com/kapu/chess-arena/internal/match"
)

// JoinStatus is the pool outcome of one join request.
type JoinStatus string

const (
	StatusWaiting JoinStatus = "waiting"
	StatusMatched JoinStatus = "matched"
)

// WaitingEntry is the single outstanding pool entry, stored as JSON
// under the slot key. Display name is captured at enqueue time so the
// eventual pairing can decorate events even if the identity provider
// is unreachable by then.
type WaitingEntry struct {
	Participant string    `json:"participant"`
	DisplayName string    `json:"display_name,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// JoinResult reports either a waiting state or the created match.
// Color is the requester's assigned side, set only when matched.
type JoinResult struct {
	Status JoinStatus
	Match  *match.Match
	Color  match.Color
}
