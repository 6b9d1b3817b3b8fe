// Package notify delivers auction lifecycle events to the chat-facing
// surface over webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/grandline/auctionhouse/auction"
)

// Event kinds carried on the webhook.
const (
	EventEnded    = "auction_ended"
	EventClaim    = "auction_claim"
	EventSold     = "auction_sold"
	EventLastCall = "last_call"
	EventOutbid   = "outbid"
)

// Event is the webhook payload. DeliveryID is unique per delivery so the
// receiver can deduplicate retries.
type Event struct {
	DeliveryID string           `json:"delivery_id"`
	Kind       string           `json:"kind"`
	Timestamp  int64            `json:"timestamp"`
	Auction    *auction.Auction `json:"auction"`

	// PreviousBidderID is set on outbid events only.
	PreviousBidderID int64 `json:"previous_bidder_id,omitempty"`
}

// WebhookNotifier implements auction.Notifier by POSTing JSON events to a
// single endpoint.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
	log      *slog.Logger
}

// NewWebhookNotifier creates a notifier for the given endpoint.
func NewWebhookNotifier(endpoint string, log *slog.Logger) *WebhookNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

func (n *WebhookNotifier) deliver(ctx context.Context, event *Event) error {
	event.DeliveryID = uuid.New().String()
	event.Timestamp = time.Now().Unix()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering %s event: %w", event.Kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("delivering %s event: unexpected status %d", event.Kind, resp.StatusCode)
	}

	n.log.Debug("event delivered",
		"kind", event.Kind, "delivery", event.DeliveryID, "channel", event.Auction.ChannelID)
	return nil
}

// AuctionEnded reports an auction that expired without bids.
func (n *WebhookNotifier) AuctionEnded(ctx context.Context, a *auction.Auction) error {
	return n.deliver(ctx, &Event{Kind: EventEnded, Auction: a})
}

// AuctionClaim reports an expired auction with a winning bidder.
func (n *WebhookNotifier) AuctionClaim(ctx context.Context, a *auction.Auction) error {
	return n.deliver(ctx, &Event{Kind: EventClaim, Auction: a})
}

// AuctionSold reports an auction closed by autobuy.
func (n *WebhookNotifier) AuctionSold(ctx context.Context, a *auction.Auction) error {
	return n.deliver(ctx, &Event{Kind: EventSold, Auction: a})
}

// LastCall reports an auction entering its final minutes.
func (n *WebhookNotifier) LastCall(ctx context.Context, a *auction.Auction) error {
	return n.deliver(ctx, &Event{Kind: EventLastCall, Auction: a})
}

// Outbid reports that the previous highest bidder has been outbid.
func (n *WebhookNotifier) Outbid(ctx context.Context, a *auction.Auction, previousBidderID int64) error {
	return n.deliver(ctx, &Event{Kind: EventOutbid, Auction: a, PreviousBidderID: previousBidderID})
}

// NopNotifier discards all events. It serves deployments without a
// webhook endpoint and tests that do not inspect notifications.
type NopNotifier struct{}

func (NopNotifier) AuctionEnded(context.Context, *auction.Auction) error { return nil }
func (NopNotifier) AuctionClaim(context.Context, *auction.Auction) error { return nil }
func (NopNotifier) AuctionSold(context.Context, *auction.Auction) error  { return nil }
func (NopNotifier) LastCall(context.Context, *auction.Auction) error     { return nil }
func (NopNotifier) Outbid(context.Context, *auction.Auction, int64) error {
	return nil
}
