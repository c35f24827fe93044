package market

import (
	"sort"
	"time"
)

// PriceRecord is one trading day's bar for a symbol.
// Date is a calendar day at UTC midnight.
type PriceRecord struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series is the ordered daily history for a single symbol.
type Series struct {
	Symbol  string
	Records []PriceRecord
}

// Len returns the number of records in the series.
func (s Series) Len() int {
	return len(s.Records)
}

// SortByDate orders the records by date ascending in place.
func (s Series) SortByDate() {
	sort.SliceStable(s.Records, func(i, j int) bool {
		return s.Records[i].Date.Before(s.Records[j].Date)
	})
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
