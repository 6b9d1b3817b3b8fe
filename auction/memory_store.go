package auction

import (
	"context"
	"sync"
)

// MemoryStore implements Store without a database. It backs tests and the
// "memory" store driver.
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[int64]*Auction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{auctions: make(map[int64]*Auction)}
}

func (s *MemoryStore) Upsert(_ context.Context, a *Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ChannelID] = a.Clone()
	return nil
}

func (s *MemoryStore) UpdateBid(_ context.Context, channelID int64, bidderID int64, bidderName string, offer int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.auctions[channelID]; ok {
		a.HighestBidderID = bidderID
		a.HighestBidder = bidderName
		a.HighestOffer = offer
	}
	return nil
}

func (s *MemoryStore) UpdateAcceptedList(_ context.Context, channelID int64, accepted string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.auctions[channelID]; ok {
		a.AcceptedList = accepted
	}
	return nil
}

func (s *MemoryStore) UpdateEndsOn(_ context.Context, channelID int64, endsOn int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.auctions[channelID]; ok {
		a.EndsOn = endsOn
	}
	return nil
}

func (s *MemoryStore) UpdateBroadcastMessageID(_ context.Context, channelID int64, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.auctions[channelID]; ok {
		a.BroadcastMessageID = messageID
	}
	return nil
}

func (s *MemoryStore) UpdateLastMinutePinged(_ context.Context, channelID int64, pinged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.auctions[channelID]; ok {
		a.LastMinutePinged = pinged
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, channelID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.auctions, channelID)
	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, channelID int64) (*Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.auctions[channelID]; ok {
		return a.Clone(), nil
	}
	return nil, nil
}

func (s *MemoryStore) FetchAll(_ context.Context) ([]*Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (s *MemoryStore) FetchDue(_ context.Context, now int64) ([]*Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Auction
	for _, a := range s.auctions {
		if a.EndsOn <= now {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) FetchEndingSoon(_ context.Context, now int64, windowSeconds int64) ([]*Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Auction
	for _, a := range s.auctions {
		if !a.LastMinutePinged && a.EndsOn <= now+windowSeconds {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
