package auction

import "context"

// Store is the durable record interface over the auctions table. Fetch
// methods return (nil, nil) when no row matches. Implementations live in
// the store package; MemoryStore backs tests and the memory driver.
type Store interface {
	// Upsert inserts or fully replaces an auction row.
	Upsert(ctx context.Context, a *Auction) error

	// UpdateBid sets the highest bidder and offer.
	UpdateBid(ctx context.Context, channelID int64, bidderID int64, bidderName string, offer int64) error

	// UpdateAcceptedList replaces the accepted-item list.
	UpdateAcceptedList(ctx context.Context, channelID int64, accepted string) error

	// UpdateEndsOn replaces the resolution deadline.
	UpdateEndsOn(ctx context.Context, channelID int64, endsOn int64) error

	// UpdateBroadcastMessageID records the announcement message for later edits.
	UpdateBroadcastMessageID(ctx context.Context, channelID int64, messageID int64) error

	// UpdateLastMinutePinged sets the last-call notification flag.
	UpdateLastMinutePinged(ctx context.Context, channelID int64, pinged bool) error

	// Delete removes the auction row.
	Delete(ctx context.Context, channelID int64) error

	// Fetch returns one auction by channel id.
	Fetch(ctx context.Context, channelID int64) (*Auction, error)

	// FetchAll returns every persisted auction.
	FetchAll(ctx context.Context) ([]*Auction, error)

	// FetchDue returns auctions with ends_on <= now (unix seconds).
	FetchDue(ctx context.Context, now int64) ([]*Auction, error)

	// FetchEndingSoon returns unpinged auctions ending within the window.
	FetchEndingSoon(ctx context.Context, now int64, windowSeconds int64) ([]*Auction, error)

	Close() error
}
