package auction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grandline/auctionhouse/market"
	"github.com/grandline/auctionhouse/metrics"
	"github.com/grandline/auctionhouse/policy"
)

// Per-host cap on concurrent auctions; privileged hosts get one more.
const (
	maxHostedAuctions           = 1
	maxHostedAuctionsPrivileged = 2
)

// EngineConfig configures the bidding engine.
type EngineConfig struct {
	// SpeedChannels lists channels with relaxed duration minimums and
	// suppressed last-call pings.
	SpeedChannels map[int64]bool

	// TestMode relaxes the ended/host/self-outbid bid checks so state
	// transitions can be exercised without multiple accounts.
	TestMode bool

	Log *slog.Logger

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Engine validates and applies lifecycle operations against the registry,
// under the per-channel guard discipline.
type Engine struct {
	registry *Registry
	guards   *GuardSet
	catalog  *market.Catalog
	notifier Notifier

	speed    map[int64]bool
	testMode bool
	log      *slog.Logger
	now      func() time.Time
}

// NewEngine wires an engine over a shared registry and guard set. The
// sweeper must use the same guard set.
func NewEngine(registry *Registry, guards *GuardSet, catalog *market.Catalog, notifier Notifier, cfg EngineConfig) *Engine {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	speed := cfg.SpeedChannels
	if speed == nil {
		speed = map[int64]bool{}
	}
	return &Engine{
		registry: registry,
		guards:   guards,
		catalog:  catalog,
		notifier: notifier,
		speed:    speed,
		testMode: cfg.TestMode,
		log:      log,
		now:      now,
	}
}

// StartRequest describes a single-item auction to create. Role and
// channel-category checks happen upstream; Privileged reflects the host's
// booster status.
type StartRequest struct {
	ChannelID   int64
	ChannelName string
	Host        User

	Item     string
	Duration string

	// Autobuy is optional compact-number text; empty disables autobuy.
	Autobuy      string
	AcceptedList string
	ImageLink    string
	Privileged   bool
}

// BulkStartRequest describes a multi-item lot auction.
type BulkStartRequest struct {
	ChannelID   int64
	ChannelName string
	Host        User

	Items []policy.BulkItem

	// Rarity is the lot's shared rarity tier.
	Rarity policy.Rarity

	Duration     string
	Autobuy      string
	AcceptedList string
	ImageLink    string
	Privileged   bool
}

// Start creates a single-item auction in the channel.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*Auction, error) {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if e.registry.Exists(req.ChannelID) {
		return nil, validationErr(req.ChannelID, "there is already an ongoing auction in this channel")
	}
	if err := e.checkHostCap(req.Host, req.Privileged); err != nil {
		return nil, err
	}

	rarity, ok := e.catalog.Rarity(req.Item)
	if !ok {
		return nil, &Error{
			Code:      CodePolicy,
			ChannelID: req.ChannelID,
			Message:   fmt.Sprintf("could not determine the rarity of %q", req.Item),
		}
	}

	increment, err := policy.MinimumIncrement(e.catalog, req.Item, rarity)
	if err != nil {
		return nil, policyErr(req.ChannelID, err)
	}
	marketValue, _ := e.catalog.LowestValue(req.Item)

	endsOn, err := e.resolveEndsOn(req.ChannelID, req.Duration, marketValue)
	if err != nil {
		return nil, err
	}
	autobuy, err := e.parseAutobuy(req.ChannelID, req.Autobuy)
	if err != nil {
		return nil, err
	}

	a := &Auction{
		ChannelID:        req.ChannelID,
		ChannelName:      req.ChannelName,
		HostID:           req.Host.ID,
		HostName:         req.Host.Name,
		Item:             market.NormalizeName(req.Item),
		ImageLink:        req.ImageLink,
		HighestOffer:     0,
		Autobuy:          autobuy,
		MinimumIncrement: increment,
		MarketValue:      marketValue,
		EndsOn:           endsOn,
		AcceptedList:     req.AcceptedList,
	}
	if err := e.registry.Upsert(ctx, a); err != nil {
		return nil, err
	}

	metrics.AuctionsStarted.Inc()
	e.log.Info("auction started",
		"channel", req.ChannelID, "host", req.Host.Name, "item", a.Item,
		"increment", increment, "endsOn", endsOn, "autobuy", autobuy)
	return a.Clone(), nil
}

// StartBulk creates a multi-item lot auction priced by the summed market
// value. Any unpriced item blocks the auction.
func (e *Engine) StartBulk(ctx context.Context, req BulkStartRequest) (*Auction, error) {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if e.registry.Exists(req.ChannelID) {
		return nil, validationErr(req.ChannelID, "there is already an ongoing auction in this channel")
	}
	if err := e.checkHostCap(req.Host, req.Privileged); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, validationErr(req.ChannelID, "a bulk auction needs at least one item")
	}

	total, priced, unpriced, anyExclusive := policy.TotalBulkValue(e.catalog, req.Items)
	if len(unpriced) > 0 {
		return nil, &Error{
			Code:      CodePolicy,
			ChannelID: req.ChannelID,
			Message:   fmt.Sprintf("no market value yet for: %s", strings.Join(unpriced, ", ")),
		}
	}

	increment, err := policy.MinimumIncrementForBulk(total, req.Rarity, anyExclusive)
	if err != nil {
		return nil, policyErr(req.ChannelID, err)
	}

	endsOn, err := e.resolveEndsOn(req.ChannelID, req.Duration, total)
	if err != nil {
		return nil, err
	}
	autobuy, err := e.parseAutobuy(req.ChannelID, req.Autobuy)
	if err != nil {
		return nil, err
	}

	a := &Auction{
		ChannelID:        req.ChannelID,
		ChannelName:      req.ChannelName,
		HostID:           req.Host.ID,
		HostName:         req.Host.Name,
		Item:             formatLot(priced),
		ImageLink:        req.ImageLink,
		IsBulk:           true,
		Autobuy:          autobuy,
		MinimumIncrement: increment,
		MarketValue:      total,
		EndsOn:           endsOn,
		AcceptedList:     req.AcceptedList,
	}
	if err := e.registry.Upsert(ctx, a); err != nil {
		return nil, err
	}

	metrics.AuctionsStarted.Inc()
	e.log.Info("bulk auction started",
		"channel", req.ChannelID, "host", req.Host.Name, "items", len(priced),
		"total", total, "increment", increment, "endsOn", endsOn)
	return a.Clone(), nil
}

// BidResult reports an accepted bid.
type BidResult struct {
	Auction *Auction

	// Sold is set when the bid met the autobuy price; the auction is
	// terminal and already deleted.
	Sold bool

	// Opening is set for the first bid of the auction.
	Opening bool

	PreviousBidderID int64
	PreviousBidder   string
}

// PlaceBid validates and applies a bid. The bidding guard covers the full
// read-modify-write; a concurrent operation on the channel yields a
// CodeBusy error with the blocking operation's reason.
func (e *Engine) PlaceBid(ctx context.Context, channelID int64, bidder User, rawAmount string) (*BidResult, error) {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	a, ok := e.registry.Get(channelID)
	if !ok {
		metrics.BidsRejected.Inc()
		return nil, notFoundErr(channelID)
	}

	if !e.testMode {
		if a.Ended(e.now()) {
			metrics.BidsRejected.Inc()
			return nil, validationErr(channelID, "this auction has already ended")
		}
		if bidder.ID == a.HostID {
			metrics.BidsRejected.Inc()
			return nil, validationErr(channelID, "you cannot bid on your own auction")
		}
		if a.HasBids() && bidder.ID == a.HighestBidderID {
			metrics.BidsRejected.Inc()
			return nil, validationErr(channelID, "you are already the highest bidder")
		}
	}

	release, err := e.guards.TryAcquire(channelID, OpBidding)
	if err != nil {
		metrics.BidsRejected.Inc()
		return nil, err
	}
	defer release()

	// Reread under the guard: a concurrent bid may have landed between
	// the checks above and the acquisition.
	if a, ok = e.registry.Get(channelID); !ok {
		metrics.BidsRejected.Inc()
		return nil, notFoundErr(channelID)
	}

	amount, err := policy.ParseCompactNumber(rawAmount)
	if err != nil {
		metrics.BidsRejected.Inc()
		return nil, policyErr(channelID, err)
	}
	if amount <= 0 {
		metrics.BidsRejected.Inc()
		return nil, validationErr(channelID, "bid amount must be greater than zero")
	}
	if amount < a.HighestOffer {
		metrics.BidsRejected.Inc()
		return nil, validationErr(channelID,
			"your bid must be higher than the current highest offer of %d", a.HighestOffer)
	}

	result := &BidResult{
		PreviousBidderID: a.HighestBidderID,
		PreviousBidder:   a.HighestBidder,
	}
	switch {
	case a.Autobuy > 0 && amount >= a.Autobuy:
		// Clamp to the autobuy price; the auction is sold.
		amount = a.Autobuy
		result.Sold = true
	case !a.HasBids():
		result.Opening = true
		if amount < policy.OpeningBidFloor {
			metrics.BidsRejected.Inc()
			return nil, validationErr(channelID,
				"the opening bid must be at least %d", policy.OpeningBidFloor)
		}
	default:
		if required := a.HighestOffer + a.MinimumIncrement; amount < required {
			metrics.BidsRejected.Inc()
			return nil, validationErr(channelID,
				"your bid must be at least %d (current highest offer plus minimum increment)", required)
		}
	}

	if err := e.registry.UpdateBid(ctx, channelID, bidder, amount); err != nil {
		return nil, err
	}
	a.HighestBidderID = bidder.ID
	a.HighestBidder = bidder.Name
	a.HighestOffer = amount
	result.Auction = a

	metrics.BidsAccepted.Inc()

	if result.Sold {
		if err := e.registry.Delete(ctx, channelID); err != nil {
			return nil, err
		}
		metrics.AuctionsSold.Inc()
		if err := e.notifier.AuctionSold(ctx, a); err != nil {
			e.log.Error("sold notification failed", "channel", channelID, "err", err)
		}
	} else if !result.Opening {
		if err := e.notifier.Outbid(ctx, a, result.PreviousBidderID); err != nil {
			e.log.Error("outbid notification failed", "channel", channelID, "err", err)
		}
	}

	e.log.Info("bid placed",
		"channel", channelID, "bidder", bidder.Name, "amount", amount,
		"sold", result.Sold, "opening", result.Opening)
	return result, nil
}

// RollbackBid overwrites the highest offer and bidder with staff-supplied
// values. This is the one path that may decrease the highest offer; it is
// an explicit correction, not a bid. Authorization happens upstream.
func (e *Engine) RollbackBid(ctx context.Context, channelID int64, target User, rawAmount string) (*Auction, error) {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	a, ok := e.registry.Get(channelID)
	if !ok {
		return nil, notFoundErr(channelID)
	}
	if a.Ended(e.now()) {
		return nil, validationErr(channelID, "this auction has already ended")
	}
	if target.ID == a.HostID {
		return nil, validationErr(channelID, "the host's bid cannot be rolled back")
	}
	if a.HasBids() && target.ID == a.HighestBidderID {
		return nil, validationErr(channelID, "%s is already the highest bidder", target.Name)
	}
	if !a.HasBids() {
		return nil, validationErr(channelID, "there are no bids to roll back")
	}

	release, err := e.guards.TryAcquire(channelID, OpRollback)
	if err != nil {
		return nil, err
	}
	defer release()

	if a, ok = e.registry.Get(channelID); !ok {
		return nil, notFoundErr(channelID)
	}

	amount, err := policy.ParseCompactNumber(rawAmount)
	if err != nil {
		return nil, policyErr(channelID, err)
	}
	if amount <= 0 {
		return nil, validationErr(channelID, "amount must be greater than zero")
	}
	if amount < policy.OpeningBidFloor {
		return nil, validationErr(channelID,
			"the rolled back bid must be at least %d", policy.OpeningBidFloor)
	}

	if err := e.registry.UpdateBid(ctx, channelID, target, amount); err != nil {
		return nil, err
	}
	a.HighestBidderID = target.ID
	a.HighestBidder = target.Name
	a.HighestOffer = amount

	metrics.RollbacksApplied.Inc()
	e.log.Info("bid rolled back", "channel", channelID, "bidder", target.Name, "amount", amount)
	return a, nil
}

// Direction selects whether ExtendOrShorten adds or subtracts time.
type Direction string

const (
	Extend  Direction = "add"
	Shorten Direction = "subtract"
)

// ExtendOrShorten moves the auction deadline by the parsed duration.
// Shortening below the current time is rejected.
func (e *Engine) ExtendOrShorten(ctx context.Context, channelID int64, direction Direction, durationText string) (*Auction, error) {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	a, ok := e.registry.Get(channelID)
	if !ok {
		return nil, notFoundErr(channelID)
	}
	if a.Ended(e.now()) {
		return nil, validationErr(channelID, "this auction has already ended")
	}

	seconds, err := policy.ParseTotalSeconds(durationText)
	if err != nil {
		return nil, policyErr(channelID, err)
	}

	release, err := e.guards.TryAcquire(channelID, OpExtend)
	if err != nil {
		return nil, err
	}
	defer release()

	if a, ok = e.registry.Get(channelID); !ok {
		return nil, notFoundErr(channelID)
	}

	var newEndsOn int64
	switch direction {
	case Extend:
		newEndsOn = a.EndsOn + seconds
	case Shorten:
		newEndsOn = a.EndsOn - seconds
		if newEndsOn < e.now().Unix() {
			return nil, validationErr(channelID, "you cannot set the end time to the past")
		}
	default:
		return nil, validationErr(channelID, "direction must be %q or %q", Extend, Shorten)
	}

	if err := e.registry.UpdateEndsOn(ctx, channelID, newEndsOn); err != nil {
		return nil, err
	}
	a.EndsOn = newEndsOn

	e.log.Info("auction end time updated", "channel", channelID, "direction", direction, "endsOn", newEndsOn)
	return a, nil
}

// Stop cancels the channel's auction and returns its final state.
func (e *Engine) Stop(ctx context.Context, channelID int64) (*Auction, error) {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	a, ok := e.registry.Get(channelID)
	if !ok {
		return nil, notFoundErr(channelID)
	}

	release, err := e.guards.TryAcquire(channelID, OpEnding)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.registry.Delete(ctx, channelID); err != nil {
		return nil, err
	}

	metrics.AuctionsStopped.Inc()
	e.log.Info("auction stopped", "channel", channelID, "item", a.Item)
	return a, nil
}

// Info returns the channel's auction state.
func (e *Engine) Info(ctx context.Context, channelID int64) (*Auction, error) {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	a, ok := e.registry.Get(channelID)
	if !ok {
		return nil, notFoundErr(channelID)
	}
	return a, nil
}

// AcceptedList returns the auction's accepted-item list.
func (e *Engine) AcceptedList(ctx context.Context, channelID int64) (string, error) {
	a, err := e.Info(ctx, channelID)
	if err != nil {
		return "", err
	}
	return a.AcceptedList, nil
}

// UpdateAcceptedList replaces the accepted-item list.
func (e *Engine) UpdateAcceptedList(ctx context.Context, channelID int64, accepted string) error {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return err
	}
	if !e.registry.Exists(channelID) {
		return notFoundErr(channelID)
	}
	return e.registry.UpdateAcceptedList(ctx, channelID, accepted)
}

// ClearAcceptedList removes the accepted-item list.
func (e *Engine) ClearAcceptedList(ctx context.Context, channelID int64) error {
	return e.UpdateAcceptedList(ctx, channelID, "")
}

// SetBroadcastMessage records the announcement message id after the
// external surface posts it.
func (e *Engine) SetBroadcastMessage(ctx context.Context, channelID int64, messageID int64) error {
	if err := e.registry.EnsureLoaded(ctx); err != nil {
		return err
	}
	if !e.registry.Exists(channelID) {
		return notFoundErr(channelID)
	}
	return e.registry.UpdateBroadcastMessageID(ctx, channelID, messageID)
}

// IsSpeedChannel reports whether the channel belongs to the speed class.
func (e *Engine) IsSpeedChannel(channelID int64) bool {
	return e.speed[channelID]
}

func (e *Engine) checkHostCap(host User, privileged bool) error {
	max := maxHostedAuctions
	if privileged {
		max = maxHostedAuctionsPrivileged
	}
	if n := e.registry.CountHostedBy(host.ID); n >= max {
		return validationErr(0,
			"you already have %d ongoing auction(s), the maximum allowed is %d", n, max)
	}
	return nil
}

func (e *Engine) resolveEndsOn(channelID int64, durationText string, value int64) (int64, error) {
	maxSeconds := policy.MaxAuctionDuration(value)
	if maxSeconds == 0 {
		return 0, &Error{
			Code:      CodePolicy,
			ChannelID: channelID,
			Message:   fmt.Sprintf("value %d is below the auction floor of %d", value, policy.AuctionFloor),
		}
	}
	_, endsOn, _, err := policy.ParseDuration(durationText, maxSeconds, e.speed[channelID], e.now())
	if err != nil {
		return 0, policyErr(channelID, err)
	}
	return endsOn, nil
}

func (e *Engine) parseAutobuy(channelID int64, raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	autobuy, err := policy.ParseCompactNumber(raw)
	if err != nil {
		return 0, policyErr(channelID, err)
	}
	if autobuy < policy.AuctionFloor {
		return 0, validationErr(channelID,
			"autobuy must be at least %d", policy.AuctionFloor)
	}
	return autobuy, nil
}

func formatLot(items []policy.PricedItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Qty, it.Name))
	}
	return strings.Join(parts, ", ")
}
