package auction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_FetchAbsent(t *testing.T) {
	s := NewMemoryStore()

	a, err := s.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestMemoryStore_UpsertAndUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, testAuction(1)))

	require.NoError(t, s.UpdateBid(ctx, 1, 200, "ash", 150_000))
	require.NoError(t, s.UpdateEndsOn(ctx, 1, 1_700_010_000))
	require.NoError(t, s.UpdateAcceptedList(ctx, 1, "arceus"))
	require.NoError(t, s.UpdateBroadcastMessageID(ctx, 1, 555))
	require.NoError(t, s.UpdateLastMinutePinged(ctx, 1, true))

	a, err := s.Fetch(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, int64(200), a.HighestBidderID)
	assert.Equal(t, int64(150_000), a.HighestOffer)
	assert.Equal(t, int64(1_700_010_000), a.EndsOn)
	assert.Equal(t, "arceus", a.AcceptedList)
	assert.Equal(t, int64(555), a.BroadcastMessageID)
	assert.True(t, a.LastMinutePinged)

	// Fetch hands out copies.
	a.HighestOffer = 1
	again, err := s.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), again.HighestOffer)

	require.NoError(t, s.Delete(ctx, 1))
	a, err = s.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestMemoryStore_FetchDue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	due := testAuction(1)
	due.EndsOn = 1_000
	running := testAuction(2)
	running.EndsOn = 2_000
	require.NoError(t, s.Upsert(ctx, due))
	require.NoError(t, s.Upsert(ctx, running))

	rows, err := s.FetchDue(ctx, 1_500)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ChannelID)

	// The deadline itself is due.
	rows, err = s.FetchDue(ctx, 2_000)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMemoryStore_FetchEndingSoon(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	soon := testAuction(1)
	soon.EndsOn = 1_500
	pinged := testAuction(2)
	pinged.EndsOn = 1_500
	pinged.LastMinutePinged = true
	far := testAuction(3)
	far.EndsOn = 10_000
	require.NoError(t, s.Upsert(ctx, soon))
	require.NoError(t, s.Upsert(ctx, pinged))
	require.NoError(t, s.Upsert(ctx, far))

	rows, err := s.FetchEndingSoon(ctx, 1_000, 600)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ChannelID)
}
