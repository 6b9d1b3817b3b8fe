package policy

// Valuer exposes the read-only market value cache. Implementations are
// expected to normalize item names themselves.
type Valuer interface {
	// LowestValue returns the lowest observed market price for an item,
	// or false if the item has no cached value.
	LowestValue(name string) (int64, bool)

	// IsExclusive reports whether the item carries the exclusivity flag.
	IsExclusive(name string) bool
}

// MinimumIncrement computes the minimum bid increment for a single item.
//
// Low rarities (below legendary) must be exclusive to qualify and always
// use the exclusive increment. Variable-increment rarities are tiered by
// market value; everything else uses the fixed rarity table.
func MinimumIncrement(v Valuer, itemName string, rarity Rarity) (int64, error) {
	value, ok := v.LowestValue(itemName)
	if !ok {
		return 0, reject(NoMarketData,
			"no market value yet for %q, ask staff to set one", itemName)
	}

	if IsLowRarity(rarity) {
		if !v.IsExclusive(itemName) {
			return 0, reject(NotAuctionable,
				"%q is not auctionable: not exclusive and below legendary rarity", itemName)
		}
		if value < AuctionFloor {
			return 0, reject(BelowAuctionFloor,
				"%q is exclusive but its market value %d is below the auction floor of %d",
				itemName, value, AuctionFloor)
		}
		return exclusiveIncrement, nil
	}

	if value < AuctionFloor {
		return 0, reject(BelowAuctionFloor,
			"market value of %q is %d, the auction floor is %d", itemName, value, AuctionFloor)
	}

	if variableRarities[rarity] {
		return tieredIncrement(value, rarity), nil
	}
	return BaseIncrement(rarity), nil
}

// MinimumIncrementForBulk computes the increment for a multi-item lot from
// its summed market value. Low rarities resolve to a flat increment by
// exclusivity regardless of total value.
func MinimumIncrementForBulk(totalValue int64, rarity Rarity, anyExclusive bool) (int64, error) {
	if IsLowRarity(rarity) {
		if anyExclusive {
			return exclusiveIncrement, nil
		}
		return 20_000, nil
	}

	if totalValue < AuctionFloor {
		return 0, reject(BelowAuctionFloor,
			"bulk lot value %d is below the auction floor of %d", totalValue, AuctionFloor)
	}

	if variableRarities[rarity] {
		return tieredIncrement(totalValue, rarity), nil
	}
	return BaseIncrement(rarity), nil
}

func tieredIncrement(value int64, rarity Rarity) int64 {
	switch {
	case value <= 20_000_000:
		return BaseIncrement(rarity)
	case value <= 100_000_000:
		return 250_000
	default:
		return 500_000
	}
}

// MaxAuctionDuration returns the longest allowed auction duration in
// seconds for a given market value. Values below the auction floor yield
// zero; the caller must reject those.
func MaxAuctionDuration(value int64) int64 {
	switch {
	case value < AuctionFloor:
		return 0
	case value <= 1_000_000:
		return 3_600
	case value <= 5_000_000:
		return 7_200
	case value <= 20_000_000:
		return 10_800
	case value <= 150_000_000:
		return 14_400
	default:
		return 18_000
	}
}
