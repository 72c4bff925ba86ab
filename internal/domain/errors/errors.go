package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNetwork          = errors.New("voting server unreachable")
	ErrVotingClosed     = errors.New("voting is closed")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrQuotaExhausted   = errors.New("daily vote limit reached")
	ErrRejectedByServer = errors.New("vote rejected by server")

	ErrUnknownContestant = errors.New("unknown contestant")
	ErrVoteCancelled     = errors.New("vote cancelled")

	// ErrEligibilityNotPersisted accompanies an accepted vote whose
	// eligibility record could not be saved.
	ErrEligibilityNotPersisted = errors.New("vote accepted but eligibility not saved")
)

// NetworkError is a transport or HTTP failure talking to the voting API.
// Nothing is mutated when it is returned; the caller may retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ClosedError reports a vote attempted outside the voting window.
type ClosedError struct {
	OpensAt   time.Time
	Remaining time.Duration
	Countdown string
}

func (e *ClosedError) Error() string {
	if e.Countdown == "" {
		return ErrVotingClosed.Error()
	}
	return fmt.Sprintf("%s: opens in %s", ErrVotingClosed, e.Countdown)
}

func (e *ClosedError) Is(target error) bool { return target == ErrVotingClosed }

// RejectedError carries the server's reason for refusing a vote that passed
// the local eligibility check.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejectedByServer.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRejectedByServer, e.Message)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejectedByServer }
