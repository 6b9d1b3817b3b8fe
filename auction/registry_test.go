package auction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuction(channelID int64) *Auction {
	return &Auction{
		ChannelID:        channelID,
		ChannelName:      "auction-1",
		HostID:           100,
		HostName:         "host",
		Item:             "gigantamax-lapras",
		MinimumIncrement: 100_000,
		MarketValue:      2_000_000,
		EndsOn:           1_700_007_200,
	}
}

// failingStore wraps a working store and fails selected operations.
type failingStore struct {
	Store
	failUpdates bool
}

var errStoreDown = errors.New("store down")

func (s *failingStore) UpdateBid(ctx context.Context, channelID int64, bidderID int64, bidderName string, offer int64) error {
	if s.failUpdates {
		return errStoreDown
	}
	return s.Store.UpdateBid(ctx, channelID, bidderID, bidderName, offer)
}

func (s *failingStore) UpdateEndsOn(ctx context.Context, channelID int64, endsOn int64) error {
	if s.failUpdates {
		return errStoreDown
	}
	return s.Store.UpdateEndsOn(ctx, channelID, endsOn)
}

func (s *failingStore) Delete(ctx context.Context, channelID int64) error {
	if s.failUpdates {
		return errStoreDown
	}
	return s.Store.Delete(ctx, channelID)
}

func TestRegistry_WriteThrough(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRegistry(store, testLogger())

	require.NoError(t, r.Upsert(ctx, testAuction(1)))
	assert.True(t, r.Exists(1))

	// The store saw the write too.
	persisted, err := store.Fetch(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "gigantamax-lapras", persisted.Item)

	require.NoError(t, r.UpdateBid(ctx, 1, User{ID: 200, Name: "bidder"}, 150_000))
	a, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(150_000), a.HighestOffer)

	persisted, err = store.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), persisted.HighestOffer)

	require.NoError(t, r.Delete(ctx, 1))
	assert.False(t, r.Exists(1))
	persisted, err = store.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestRegistry_StoreFailureLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: NewMemoryStore()}
	r := NewRegistry(store, testLogger())

	require.NoError(t, r.Upsert(ctx, testAuction(1)))
	require.NoError(t, r.UpdateBid(ctx, 1, User{ID: 200, Name: "bidder"}, 150_000))

	store.failUpdates = true

	err := r.UpdateBid(ctx, 1, User{ID: 300, Name: "other"}, 300_000)
	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, errStoreDown)

	// The last acknowledged bid survives.
	a, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(150_000), a.HighestOffer)
	assert.Equal(t, int64(200), a.HighestBidderID)

	err = r.Delete(ctx, 1)
	require.Error(t, err)
	assert.True(t, r.Exists(1))
}

func TestRegistry_LoadRehydrates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, testAuction(1)))
	require.NoError(t, store.Upsert(ctx, testAuction(2)))

	r := NewRegistry(store, testLogger())
	assert.Equal(t, 0, r.Len())

	require.NoError(t, r.Load(ctx))
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Exists(1))
	assert.True(t, r.Exists(2))
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore(), testLogger())
	require.NoError(t, r.Upsert(ctx, testAuction(1)))

	a, ok := r.Get(1)
	require.True(t, ok)
	a.HighestOffer = 999_999_999

	fresh, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(0), fresh.HighestOffer)
}

func TestRegistry_CountHostedBy(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewMemoryStore(), testLogger())

	a1 := testAuction(1)
	a2 := testAuction(2)
	a2.HostID = 999
	require.NoError(t, r.Upsert(ctx, a1))
	require.NoError(t, r.Upsert(ctx, a2))

	assert.Equal(t, 1, r.CountHostedBy(100))
	assert.Equal(t, 1, r.CountHostedBy(999))
	assert.Equal(t, 0, r.CountHostedBy(123))
}
