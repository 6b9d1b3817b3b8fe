package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValuer struct {
	values    map[string]int64
	exclusive map[string]bool
}

func (s *stubValuer) LowestValue(name string) (int64, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *stubValuer) IsExclusive(name string) bool {
	return s.exclusive[name]
}

func newStubValuer() *stubValuer {
	return &stubValuer{
		values:    make(map[string]int64),
		exclusive: make(map[string]bool),
	}
}

func TestMinimumIncrement_NoMarketData(t *testing.T) {
	v := newStubValuer()

	_, err := MinimumIncrement(v, "missingno", RarityLegendary)
	require.Error(t, err)
	assert.Equal(t, NoMarketData, RejectionCodeOf(err))
}

func TestMinimumIncrement_BelowFloor(t *testing.T) {
	v := newStubValuer()
	v.values["pidgey"] = 399_999

	_, err := MinimumIncrement(v, "pidgey", RarityLegendary)
	require.Error(t, err)
	assert.Equal(t, BelowAuctionFloor, RejectionCodeOf(err))
}

func TestMinimumIncrement_FixedRarities(t *testing.T) {
	v := newStubValuer()
	v.values["item"] = 2_000_000

	tests := []struct {
		rarity Rarity
		want   int64
	}{
		{RarityLegendary, 20_000},
		{RarityMega, 50_000},
		{RarityShiny, 50_000},
		{RarityShinyMega, 50_000},
		{RarityExclusive, 30_000},
		{RarityGoldenMega, 50_000}, // no table entry, default applies under the tier cap
	}
	for _, tt := range tests {
		inc, err := MinimumIncrement(v, "item", tt.rarity)
		require.NoError(t, err, "rarity %s", tt.rarity)
		assert.Equal(t, tt.want, inc, "rarity %s", tt.rarity)
	}
}

func TestMinimumIncrement_TieredByValue(t *testing.T) {
	v := newStubValuer()

	tests := []struct {
		value  int64
		rarity Rarity
		want   int64
	}{
		{20_000_000, RarityGolden, 100_000},
		{20_000_001, RarityGolden, 250_000},
		{100_000_000, RarityGolden, 250_000},
		{100_000_001, RarityGolden, 500_000},
		{20_000_001, RarityGigantamax, 250_000},
		{100_000_001, RarityShinyGigantamax, 500_000},
		{400_000, RarityGoldenMega, 50_000},
		{150_000_000, RarityGoldenMega, 500_000},
	}
	for _, tt := range tests {
		v.values["item"] = tt.value
		inc, err := MinimumIncrement(v, "item", tt.rarity)
		require.NoError(t, err, "value %d rarity %s", tt.value, tt.rarity)
		assert.Equal(t, tt.want, inc, "value %d rarity %s", tt.value, tt.rarity)
	}
}

func TestMinimumIncrement_FixedRarityIgnoresValue(t *testing.T) {
	// Mega is not tiered, so even a huge value keeps the table increment.
	v := newStubValuer()
	v.values["item"] = 500_000_000

	inc, err := MinimumIncrement(v, "item", RarityMega)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), inc)
}

func TestMinimumIncrement_LowRarity(t *testing.T) {
	v := newStubValuer()

	// Not exclusive: never auctionable, whatever the value.
	v.values["rattata"] = 10_000_000
	_, err := MinimumIncrement(v, "rattata", RarityCommon)
	require.Error(t, err)
	assert.Equal(t, NotAuctionable, RejectionCodeOf(err))

	// Exclusive but under the floor.
	v.values["eevee"] = 300_000
	v.exclusive["eevee"] = true
	_, err = MinimumIncrement(v, "eevee", RaritySuperRare)
	require.Error(t, err)
	assert.Equal(t, BelowAuctionFloor, RejectionCodeOf(err))

	// Exclusive and over the floor: flat exclusive increment.
	v.values["eevee"] = 600_000
	inc, err := MinimumIncrement(v, "eevee", RaritySuperRare)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), inc)
}

func TestMinimumIncrementForBulk(t *testing.T) {
	// Low rarity lots resolve flat by exclusivity, even below the floor.
	inc, err := MinimumIncrementForBulk(100_000, RarityCommon, true)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), inc)

	inc, err = MinimumIncrementForBulk(100_000, RarityRare, false)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), inc)

	// Other rarities hold the lot total to the floor.
	_, err = MinimumIncrementForBulk(399_999, RarityShiny, false)
	require.Error(t, err)
	assert.Equal(t, BelowAuctionFloor, RejectionCodeOf(err))

	inc, err = MinimumIncrementForBulk(2_000_000, RarityLegendary, false)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), inc)

	// Tiered rarities tier on the lot total.
	inc, err = MinimumIncrementForBulk(120_000_000, RarityGolden, false)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), inc)
}

func TestMaxAuctionDuration(t *testing.T) {
	tests := []struct {
		value int64
		want  int64
	}{
		{399_999, 0},
		{400_000, 3_600},
		{1_000_000, 3_600},
		{1_000_001, 7_200},
		{5_000_000, 7_200},
		{5_000_001, 10_800},
		{20_000_000, 10_800},
		{20_000_001, 14_400},
		{150_000_000, 14_400},
		{150_000_001, 18_000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxAuctionDuration(tt.value), "value %d", tt.value)
	}
}

func TestTotalBulkValue(t *testing.T) {
	v := newStubValuer()
	v.values["shiny cottonee"] = 500_000
	v.values["gigantamax-lapras"] = 2_000_000
	v.exclusive["shiny cottonee"] = true

	total, priced, unpriced, anyExclusive := TotalBulkValue(v, []BulkItem{
		{Name: "shiny cottonee", Qty: 2},
		{Name: "gigantamax-lapras", Qty: 1},
		{Name: "missingno", Qty: 3},
	})

	assert.Equal(t, int64(3_000_000), total)
	require.Len(t, priced, 2)
	assert.Equal(t, []string{"missingno"}, unpriced)
	assert.True(t, anyExclusive)
}
