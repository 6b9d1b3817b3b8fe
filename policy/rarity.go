package policy

// Rarity classifies an auctioned item and drives the increment policy.
type Rarity string

const (
	RarityCommon          Rarity = "common"
	RarityUncommon        Rarity = "uncommon"
	RarityRare            Rarity = "rare"
	RaritySuperRare       Rarity = "super rare"
	RarityLegendary       Rarity = "legendary"
	RarityMega            Rarity = "mega"
	RarityGigantamax      Rarity = "gigantamax"
	RarityShiny           Rarity = "shiny"
	RarityShinyGigantamax Rarity = "shiny gigantamax"
	RarityShinyMega       Rarity = "shiny mega"
	RarityGolden          Rarity = "golden"
	RarityGoldenMega      Rarity = "golden mega"
	RarityExclusive       Rarity = "exclusive"
)

const (
	// AuctionFloor is the minimum market value an item must have to be
	// auctioned at all. Autobuy prices are held to the same floor.
	AuctionFloor int64 = 400_000

	// OpeningBidFloor is the smallest accepted opening bid.
	OpeningBidFloor int64 = 100_000

	// defaultIncrement applies to rarities without a fixed table entry.
	defaultIncrement int64 = 50_000

	// exclusiveIncrement applies to exclusive items of low rarity.
	exclusiveIncrement int64 = 30_000
)

// baseIncrements is the fixed per-rarity increment table.
var baseIncrements = map[Rarity]int64{
	RarityLegendary:       20_000,
	RarityMega:            50_000,
	RarityGigantamax:      100_000,
	RarityShiny:           50_000,
	RarityShinyGigantamax: 100_000,
	RarityShinyMega:       50_000,
	RarityGolden:          100_000,
	RarityExclusive:       30_000,
}

// lowRarities must be exclusive to be auctionable and always use the
// low-tier increments, regardless of market value.
var lowRarities = map[Rarity]bool{
	RarityCommon:    true,
	RarityUncommon:  true,
	RarityRare:      true,
	RaritySuperRare: true,
}

// variableRarities have their increment tiered by market value.
var variableRarities = map[Rarity]bool{
	RarityGolden:          true,
	RarityGigantamax:      true,
	RarityShinyGigantamax: true,
	RarityGoldenMega:      true,
}

// BaseIncrement returns the fixed increment for a rarity, falling back to
// the default for rarities without a table entry.
func BaseIncrement(rarity Rarity) int64 {
	if inc, ok := baseIncrements[rarity]; ok {
		return inc
	}
	return defaultIncrement
}

// IsLowRarity reports whether the rarity sits below legendary.
func IsLowRarity(rarity Rarity) bool { return lowRarities[rarity] }
