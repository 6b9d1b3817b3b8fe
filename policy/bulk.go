package policy

// BulkItem is one entry of a multi-item lot.
type BulkItem struct {
	Name string
	Qty  int64
}

// PricedItem is a bulk entry with its resolved market value.
type PricedItem struct {
	Name  string
	Qty   int64
	Value int64
}

// TotalBulkValue sums the cached market value of every lot entry. Items
// without a cached value are returned separately; any such item must block
// the auction. The anyExclusive result reports whether at least one priced
// or unpriced entry carries the exclusivity flag.
func TotalBulkValue(v Valuer, items []BulkItem) (total int64, priced []PricedItem, unpriced []string, anyExclusive bool) {
	for _, item := range items {
		if !anyExclusive && v.IsExclusive(item.Name) {
			anyExclusive = true
		}
		value, ok := v.LowestValue(item.Name)
		if !ok {
			unpriced = append(unpriced, item.Name)
			continue
		}
		total += value * item.Qty
		priced = append(priced, PricedItem{Name: item.Name, Qty: item.Qty, Value: value})
	}
	return total, priced, unpriced, anyExclusive
}
