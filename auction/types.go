package auction

import (
	"context"
	"time"
)

// User identifies a platform member by id and display name.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Auction is the canonical state of one channel's auction. The registry
// owns the in-memory copy; the durable store is the recovery source.
type Auction struct {
	ChannelID   int64  `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	HostID      int64  `json:"host_id"`
	HostName    string `json:"host_name"`

	// Item is the display name, or the formatted lot summary for bulk.
	Item      string `json:"item"`
	ImageLink string `json:"image_link,omitempty"`
	IsBulk    bool   `json:"is_bulk,omitempty"`

	HighestBidderID  int64  `json:"highest_bidder_id"`
	HighestBidder    string `json:"highest_bidder"`
	HighestOffer     int64  `json:"highest_offer"`
	Autobuy          int64  `json:"autobuy,omitempty"`
	MinimumIncrement int64  `json:"minimum_increment"`
	MarketValue      int64  `json:"market_value"`

	// EndsOn is the resolution deadline in unix seconds.
	EndsOn           int64 `json:"ends_on"`
	LastMinutePinged bool  `json:"last_minute_pinged"`

	AcceptedList       string `json:"accepted_list,omitempty"`
	BroadcastMessageID int64  `json:"broadcast_message_id,omitempty"`
}

// Clone returns an independent copy.
func (a *Auction) Clone() *Auction {
	c := *a
	return &c
}

// Ended reports whether the auction is past its deadline.
func (a *Auction) Ended(now time.Time) bool {
	return now.Unix() >= a.EndsOn
}

// HasBids reports whether any bid has been placed.
func (a *Auction) HasBids() bool {
	return a.HighestBidderID != 0
}

// Notifier receives the engine's outbound notification obligations. The
// chat-facing renderer behind it owns all message formatting.
type Notifier interface {
	// AuctionEnded fires when an auction expires with no bids.
	AuctionEnded(ctx context.Context, a *Auction) error

	// AuctionClaim fires when an auction expires with a winning bidder.
	AuctionClaim(ctx context.Context, a *Auction) error

	// AuctionSold fires when a bid meets the autobuy price.
	AuctionSold(ctx context.Context, a *Auction) error

	// LastCall fires once per auction within the last-call window.
	LastCall(ctx context.Context, a *Auction) error

	// Outbid fires when an existing highest bidder is displaced.
	Outbid(ctx context.Context, a *Auction, previousBidderID int64) error
}

// Directory answers whether a channel still exists on the messaging
// platform. Auctions in vanished channels are cleaned up silently.
type Directory interface {
	ChannelExists(ctx context.Context, channelID int64) (bool, error)
}

// DirectoryFunc adapts a function to the Directory interface.
type DirectoryFunc func(ctx context.Context, channelID int64) (bool, error)

func (f DirectoryFunc) ChannelExists(ctx context.Context, channelID int64) (bool, error) {
	return f(ctx, channelID)
}
