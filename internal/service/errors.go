package service

import (
	"database/sql"
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns to callers wraps at most one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("invalid state")
)

var (
	ErrAlreadyVoted     = fmt.Errorf("%w: already voted on this match", ErrConflict)
	ErrRoundNotFinished = fmt.Errorf("%w: round not finished", ErrConflict)

	ErrMatchNotVotable = fmt.Errorf("%w: match is not open for voting", ErrState)
	ErrNoActiveRound   = fmt.Errorf("%w: no active round", ErrState)

	ErrTournamentNotFound   = fmt.Errorf("%w: tournament", ErrNotFound)
	ErrMatchNotFound        = fmt.Errorf("%w: match", ErrNotFound)
	ErrPostNotFound         = fmt.Errorf("%w: post", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)

	ErrNotEnoughParticipants = fmt.Errorf("%w: at least 2 participants are required", ErrValidation)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound swaps sql.ErrNoRows for the given domain error.
func notFound(err error, target error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return err
}
