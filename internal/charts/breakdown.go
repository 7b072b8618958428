package charts

import "dotproduct/internal/core"

// CategoryRow is one line of the spending-by-category table.
type CategoryRow struct {
	Name   string
	Type   core.EntryType
	Total  string
	Amount core.Money
	// Width is the row's share of the largest total of the same type, as a
	// rounded percentage.
	Width int
}

// CategoryRows turns category-summary items into table rows, keeping the
// backend's ordering.
func CategoryRows(items []core.CategorySummaryItem) []CategoryRow {
	maxByType := make(map[core.EntryType]int64)
	for _, it := range items {
		if it.Total.Cents > maxByType[it.Type] {
			maxByType[it.Type] = it.Total.Cents
		}
	}

	rows := make([]CategoryRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, CategoryRow{
			Name:   it.Label(),
			Type:   it.Type,
			Total:  Money(it.Total),
			Amount: it.Total,
			Width:  shareWidth(it.Total.Cents, maxByType[it.Type]),
		})
	}
	return rows
}

func shareWidth(cents, maxCents int64) int {
	if maxCents <= 0 || cents <= 0 {
		return 0
	}
	width := int((cents*100 + maxCents/2) / maxCents)
	// keep very small values visible
	if width < 2 {
		width = 2
	}
	return min(width, 100)
}
