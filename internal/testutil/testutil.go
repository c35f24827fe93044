package testutil

import (
	"context"
	"sync"
	"time"

	"pricefetch/internal/market"
)

// MockFetcher is a mock implementation of coordinator.SeriesFetcher for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, symbol string, lookbackDays int) (market.Series, error)

	mu    sync.Mutex
	calls map[string]int
}

// Fetch implements coordinator.SeriesFetcher
func (m *MockFetcher) Fetch(ctx context.Context, symbol string, lookbackDays int) (market.Series, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol, lookbackDays)
	}
	return market.Series{Symbol: symbol}, nil
}

// Calls returns how many times symbol was fetched
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// Response is a canned reply for NewMockFetcher
type Response struct {
	Rows int
	Err  error
}

// NewMockFetcher creates a mock fetcher replying per symbol; unknown symbols get an empty series
func NewMockFetcher(responses map[string]Response) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string, lookbackDays int) (market.Series, error) {
			resp := responses[symbol]
			if resp.Err != nil {
				return market.Series{}, resp.Err
			}
			return Series(symbol, resp.Rows), nil
		},
	}
}

// Series builds n consecutive daily records starting 2024-01-01
func Series(symbol string, n int) market.Series {
	s := market.Series{Symbol: symbol}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		s.Records = append(s.Records, market.PriceRecord{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 2,
			Low:    price - 1,
			Close:  price + 1,
			Volume: int64(1000 * (i + 1)),
		})
	}
	return s
}
