package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPollClosed          = errors.New("poll is closed")
	ErrDuplicateVote       = errors.New("user has already voted")
	ErrInvalidOption       = errors.New("invalid option")
	ErrDuplicateRequest    = errors.New("a pending admin request already exists")
	ErrStoreUnavailable    = errors.New("store unavailable")

	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("invalid credentials")
)

// Invalid wraps ErrInvalidInput with a human readable reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// Unavailable wraps an unexpected backend error so callers see ErrStoreUnavailable.
// Domain errors pass through untouched.
func Unavailable(err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrPollClosed, "poll_closed"},
	{ErrDuplicateVote, "duplicate_vote"},
	{ErrInvalidOption, "invalid_option"},
	{ErrDuplicateRequest, "duplicate_request"},
	{ErrStoreUnavailable, "store_unavailable"},
	{ErrConflict, "conflict"},
	{ErrInvalidInput, "invalid_input"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrUnauthorized, "unauthorized"},
}

// Code returns the stable, client-facing identifier for err's failure kind.
// Unknown errors report "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// IsDomain reports whether err belongs to the typed failure taxonomy.
func IsDomain(err error) bool {
	return Code(err) != "internal"
}
