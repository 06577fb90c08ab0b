package arenadto

// DomainError is the single error shape crossing the service boundary.
// Validation failures are terminal for the request; only Retryable
// errors are worth re-submitting unchanged.
type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "arena error"
}

const (
	CodeUnknownParticipant = "unknown_participant"
	CodeMatchNotFound      = "match_not_found"
	CodeNotAParticipant    = "not_a_participant"
	CodeNotYourTurn        = "not_your_turn"
	CodeIllegalMove        = "illegal_move"
	CodeGameAlreadyOver    = "game_already_over"
	CodeStoreUnavailable   = "store_unavailable"
	CodeBroadcastFailed    = "broadcast_failed"
)

var (
	ErrUnknownParticipant = &DomainError{Code: CodeUnknownParticipant, Message: "participant could not be resolved"}
	ErrMatchNotFound      = &DomainError{Code: CodeMatchNotFound, Message: "match not found"}
	ErrNotAParticipant    = &DomainError{Code: CodeNotAParticipant, Message: "caller is not a participant of this match"}
	ErrNotYourTurn        = &DomainError{Code: CodeNotYourTurn, Message: "it is not your turn"}
	ErrIllegalMove        = &DomainError{Code: CodeIllegalMove, Message: "illegal move"}
	ErrGameAlreadyOver    = &DomainError{Code: CodeGameAlreadyOver, Message: "match is already finished"}
	ErrStoreUnavailable   = &DomainError{Code: CodeStoreUnavailable, Message: "state store unavailable, retry", Retryable: true}
	ErrBroadcastFailed    = &DomainError{Code: CodeBroadcastFailed, Message: "event broadcast failed"}
)
