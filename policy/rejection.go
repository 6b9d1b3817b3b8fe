package policy

import (
	"errors"
	"fmt"
)

// RejectionCode categorizes policy rejections.
type RejectionCode string

const (
	// NoMarketData indicates the item has no cached market value.
	NoMarketData RejectionCode = "NO_MARKET_DATA"

	// BelowAuctionFloor indicates the item's value is under the auction floor.
	BelowAuctionFloor RejectionCode = "BELOW_AUCTION_FLOOR"

	// NotAuctionable indicates a non-exclusive item below legendary rarity.
	NotAuctionable RejectionCode = "NOT_AUCTIONABLE"

	// InvalidFormat indicates unparseable duration or amount text.
	InvalidFormat RejectionCode = "INVALID_FORMAT"

	// TooShort indicates a duration under the channel-class minimum.
	TooShort RejectionCode = "TOO_SHORT"

	// TooLong indicates a duration over the computed maximum.
	TooLong RejectionCode = "TOO_LONG"
)

// Rejection is a policy-level refusal with a remediation hint for the
// caller-facing surface.
type Rejection struct {
	Code   RejectionCode
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

func reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// RejectionCodeOf returns the code of a wrapped Rejection, or "" if err is
// not a policy rejection.
func RejectionCodeOf(err error) RejectionCode {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}
