package auction

import (
	"context"
	"log/slog"
	"sync"
)

// Registry is the authoritative in-memory map of active auctions, mirrored
// to the durable store. Every mutation is write-through: the store must
// acknowledge before the in-memory state commits, and a store failure
// leaves the registry untouched.
type Registry struct {
	store Store
	log   *slog.Logger

	mu       sync.RWMutex
	auctions map[int64]*Auction
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store Store, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		store:    store,
		log:      log,
		auctions: make(map[int64]*Auction),
	}
}

// Load rehydrates the registry from every persisted auction row. Called on
// process start and by EnsureLoaded.
func (r *Registry) Load(ctx context.Context) error {
	rows, err := r.store.FetchAll(ctx)
	if err != nil {
		return persistenceErr(0, "loading auctions", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions = make(map[int64]*Auction, len(rows))
	for _, a := range rows {
		r.auctions[a.ChannelID] = a
	}
	r.log.Info("auction registry loaded", "count", len(r.auctions))
	return nil
}

// EnsureLoaded reloads once from the store if the registry is empty. A
// still-empty registry afterwards is a legitimate no-auctions state.
func (r *Registry) EnsureLoaded(ctx context.Context) error {
	r.mu.RLock()
	empty := len(r.auctions) == 0
	r.mu.RUnlock()
	if !empty {
		return nil
	}
	r.log.Debug("auction registry empty, reloading from store")
	return r.Load(ctx)
}

// Get returns a copy of the channel's auction.
func (r *Registry) Get(channelID int64) (*Auction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.auctions[channelID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Exists reports whether the channel has an active auction.
func (r *Registry) Exists(channelID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.auctions[channelID]
	return ok
}

// Len returns the number of active auctions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.auctions)
}

// CountHostedBy returns how many active auctions the user hosts.
func (r *Registry) CountHostedBy(hostID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.auctions {
		if a.HostID == hostID {
			n++
		}
	}
	return n
}

// Upsert writes the auction through to the store, then commits it in
// memory.
func (r *Registry) Upsert(ctx context.Context, a *Auction) error {
	if err := r.store.Upsert(ctx, a); err != nil {
		return persistenceErr(a.ChannelID, "upserting auction", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[a.ChannelID] = a.Clone()
	return nil
}

// UpdateBid writes the new highest bidder/offer through to the store, then
// commits in memory.
func (r *Registry) UpdateBid(ctx context.Context, channelID int64, bidder User, offer int64) error {
	if err := r.store.UpdateBid(ctx, channelID, bidder.ID, bidder.Name, offer); err != nil {
		return persistenceErr(channelID, "updating bid", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[channelID]; ok {
		a.HighestBidderID = bidder.ID
		a.HighestBidder = bidder.Name
		a.HighestOffer = offer
	}
	return nil
}

// UpdateEndsOn writes the new deadline through to the store, then commits
// in memory.
func (r *Registry) UpdateEndsOn(ctx context.Context, channelID int64, endsOn int64) error {
	if err := r.store.UpdateEndsOn(ctx, channelID, endsOn); err != nil {
		return persistenceErr(channelID, "updating end time", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[channelID]; ok {
		a.EndsOn = endsOn
	}
	return nil
}

// UpdateAcceptedList writes the accepted-item list through to the store,
// then commits in memory.
func (r *Registry) UpdateAcceptedList(ctx context.Context, channelID int64, accepted string) error {
	if err := r.store.UpdateAcceptedList(ctx, channelID, accepted); err != nil {
		return persistenceErr(channelID, "updating accepted list", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[channelID]; ok {
		a.AcceptedList = accepted
	}
	return nil
}

// UpdateBroadcastMessageID records the announcement message id.
func (r *Registry) UpdateBroadcastMessageID(ctx context.Context, channelID int64, messageID int64) error {
	if err := r.store.UpdateBroadcastMessageID(ctx, channelID, messageID); err != nil {
		return persistenceErr(channelID, "updating broadcast message id", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[channelID]; ok {
		a.BroadcastMessageID = messageID
	}
	return nil
}

// UpdateLastMinutePinged sets the last-call flag, store first.
func (r *Registry) UpdateLastMinutePinged(ctx context.Context, channelID int64, pinged bool) error {
	if err := r.store.UpdateLastMinutePinged(ctx, channelID, pinged); err != nil {
		return persistenceErr(channelID, "updating last-call flag", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[channelID]; ok {
		a.LastMinutePinged = pinged
	}
	return nil
}

// Delete removes the auction from the store, then from memory.
func (r *Registry) Delete(ctx context.Context, channelID int64) error {
	if err := r.store.Delete(ctx, channelID); err != nil {
		return persistenceErr(channelID, "deleting auction", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.auctions, channelID)
	return nil
}
