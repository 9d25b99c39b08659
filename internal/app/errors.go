package app

import (
	"errors"
	"fmt"

	"echodao-backend/internal/model"
)

var (
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrUpstreamUnavailable marks a failure of the content store or of the
	// text intelligence collaborators.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	ErrInvalidInput = errors.New("invalid input")
)

type GuardKind string

const (
	GuardQuotaExceeded        GuardKind = "quota_exceeded"
	GuardFeeInsufficient      GuardKind = "fee_insufficient"
	GuardAlreadyVoted         GuardKind = "already_voted"
	GuardVotingNotEnded       GuardKind = "voting_not_ended"
	GuardAlreadyExecuted      GuardKind = "already_executed"
	GuardQuorumFailed         GuardKind = "quorum_failed"
	GuardNotOwner             GuardKind = "not_owner"
	GuardInsufficientTreasury GuardKind = "insufficient_treasury"
)

// GuardError is an off-chain precondition that failed before any gas was spent.
type GuardError struct {
	Kind    GuardKind
	Message string
	// RequiredFee is set for quota and fee guards.
	RequiredFee *model.Ether
}

func (e *GuardError) Error() string {
	return e.Message
}

func guard(kind GuardKind, format string, args ...interface{}) *GuardError {
	return &GuardError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

func upstream(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, what, err)
}
