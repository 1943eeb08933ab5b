package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a game session has not been created.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrRoundNotFound is returned when a round id is not part of the session.
	ErrRoundNotFound = errors.New("round not found")
	// ErrQuestionNotFound indicates a live question record is missing for the round.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned when an actor tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrTeamNotFound is returned when a team id is unknown.
	ErrTeamNotFound = errors.New("team not found")
	// ErrContentNotFound indicates base question content could not be loaded.
	ErrContentNotFound = errors.New("question content not found")
)

// RejectCode classifies an illegal action.
type RejectCode string

const (
	RejectWrongTurn       RejectCode = "wrong_turn"
	RejectAlreadyResolved RejectCode = "already_resolved"
	RejectMaxTries        RejectCode = "max_tries"
	RejectInvalidArgument RejectCode = "invalid_argument"
	RejectInvalidState    RejectCode = "invalid_state"
	RejectForbidden       RejectCode = "forbidden"
	RejectAlreadyDone     RejectCode = "already_done"
)

// RejectionError is a recoverable, user-visible refusal of an action. It is
// always returned before any write is staged.
type RejectionError struct {
	Code   RejectCode
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("action rejected (%s): %s", e.Code, e.Reason)
}

// Reject builds a RejectionError.
func Reject(code RejectCode, format string, args ...any) error {
	return &RejectionError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is an illegal-action rejection and returns it.
func IsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// IsMissingReference reports whether err is one of the missing-reference errors.
func IsMissingReference(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrRoundNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrContentNotFound)
}
