package auction

import (
	"errors"
	"fmt"

	"github.com/grandline/auctionhouse/policy"
)

// Code categorizes lifecycle errors. Every failure is scoped to one
// channel and operation; nothing in this package is fatal to the process.
type Code string

const (
	// CodeValidation covers bad amounts, bad durations and out-of-range
	// values. Auction state is unchanged.
	CodeValidation Code = "VALIDATION"

	// CodeBusy means another operation holds the channel's guard. The
	// message names the blocking operation; the caller may retry later.
	CodeBusy Code = "BUSY"

	// CodeNotFound means no active auction exists for the channel.
	CodeNotFound Code = "NOT_FOUND"

	// CodePolicy covers policy rejections (no market data, below floor,
	// not auctionable) and carries a remediation hint.
	CodePolicy Code = "POLICY"

	// CodePersistence means a store call failed. The in-memory registry
	// is left at its last known-good state.
	CodePersistence Code = "PERSISTENCE"
)

// Error is a structured lifecycle error.
type Error struct {
	Code      Code
	Message   string
	ChannelID int64

	// Blocking names the operation holding the guard, for CodeBusy.
	Blocking OpKind

	Err error
}

func (e *Error) Error() string {
	if e.ChannelID != 0 {
		return fmt.Sprintf("%s: %s (channel=%d)", e.Code, e.Message, e.ChannelID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of a wrapped *Error, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsBusy reports whether err is a guard conflict.
func IsBusy(err error) bool { return CodeOf(err) == CodeBusy }

// IsNotFound reports whether err means no active auction.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsPolicy reports whether err is a policy rejection.
func IsPolicy(err error) bool { return CodeOf(err) == CodePolicy }

// IsPersistence reports whether err is a store failure.
func IsPersistence(err error) bool { return CodeOf(err) == CodePersistence }

func validationErr(channelID int64, format string, args ...any) *Error {
	return &Error{Code: CodeValidation, ChannelID: channelID, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(channelID int64) *Error {
	return &Error{Code: CodeNotFound, ChannelID: channelID, Message: "no active auction in this channel"}
}

func busyErr(channelID int64, blocking OpKind) *Error {
	return &Error{
		Code:      CodeBusy,
		ChannelID: channelID,
		Blocking:  blocking,
		Message:   blocking.BusyReason(),
	}
}

func persistenceErr(channelID int64, op string, err error) *Error {
	return &Error{
		Code:      CodePersistence,
		ChannelID: channelID,
		Message:   fmt.Sprintf("%s: %v", op, err),
		Err:       err,
	}
}

// policyErr wraps a policy rejection, keeping its code reachable through
// errors.As. Parse rejections surface as validation instead.
func policyErr(channelID int64, err error) *Error {
	code := CodePolicy
	switch policy.RejectionCodeOf(err) {
	case policy.InvalidFormat, policy.TooShort, policy.TooLong:
		code = CodeValidation
	}
	return &Error{Code: code, ChannelID: channelID, Message: err.Error(), Err: err}
}
