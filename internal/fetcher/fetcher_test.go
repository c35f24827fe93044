package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pricefetch/internal/market"
)

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
}

func series(n int) market.Series {
	s := market.Series{}
	for i := 0; i < n; i++ {
		s.Records = append(s.Records, market.PriceRecord{
			Date:  time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC),
			Close: float64(100 + i),
		})
	}
	return s
}

func TestFetch_Success(t *testing.T) {
	var gotFrom, gotTo time.Time
	source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
		gotFrom, gotTo = from, to
		return series(5), nil
	})

	sleeper := &recordingSleep{}
	f := New(source, Options{MaxAttempts: 3, Sleep: sleeper.Sleep, Now: fixedNow})

	got, err := f.Fetch(context.Background(), "AAA", 5)
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}
	if got.Symbol != "AAA" {
		t.Errorf("Symbol = %q, want AAA", got.Symbol)
	}
	if got.Len() != 5 {
		t.Errorf("Len() = %d, want 5", got.Len())
	}
	if want := fixedNow().AddDate(0, 0, -5); !gotFrom.Equal(want) {
		t.Errorf("from = %v, want %v", gotFrom, want)
	}
	if !gotTo.Equal(fixedNow()) {
		t.Errorf("to = %v, want %v", gotTo, fixedNow())
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("slept %d times, want 0", len(sleeper.delays))
	}
}

func TestFetch_RetriesTransientUntilExhausted(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
	}{
		{"single attempt", 1},
		{"three attempts", 3},
		{"five attempts", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
				calls++
				return market.Series{}, NewServerError(503)
			})

			sleeper := &recordingSleep{}
			f := New(source, Options{
				MaxAttempts: tt.maxAttempts,
				Backoff:     Backoff{Base: time.Second, Factor: 2},
				Sleep:       sleeper.Sleep,
			})

			_, err := f.Fetch(context.Background(), "AAA", 5)
			if err == nil {
				t.Fatal("Fetch() expected error, got nil")
			}

			if calls != tt.maxAttempts {
				t.Errorf("source called %d times, want %d", calls, tt.maxAttempts)
			}
			if len(sleeper.delays) != tt.maxAttempts-1 {
				t.Errorf("slept %d times, want %d", len(sleeper.delays), tt.maxAttempts-1)
			}

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("error type = %T, want *FetchError", err)
			}
			if fe.Kind != KindTransient {
				t.Errorf("Kind = %q, want transient", fe.Kind)
			}
			if fe.Attempts != tt.maxAttempts {
				t.Errorf("Attempts = %d, want %d", fe.Attempts, tt.maxAttempts)
			}
			if fe.StatusCode != 503 {
				t.Errorf("StatusCode = %d, want 503", fe.StatusCode)
			}
		})
	}
}

func TestFetch_ExhaustedCarriesLastError(t *testing.T) {
	errs := []error{
		errors.New("connection reset"),
		errors.New("connection refused"),
	}
	calls := 0
	source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
		err := errs[calls]
		calls++
		return market.Series{}, err
	})

	f := New(source, Options{MaxAttempts: 2, Sleep: (&recordingSleep{}).Sleep})

	_, err := f.Fetch(context.Background(), "AAA", 5)
	if !errors.Is(err, errs[1]) {
		t.Errorf("Fetch() error = %v, want it to wrap %v", err, errs[1])
	}
	if errors.Is(err, errs[0]) {
		t.Errorf("Fetch() error = %v, should not wrap the first attempt's error", err)
	}
}

func TestFetch_PermanentFailsImmediately(t *testing.T) {
	calls := 0
	source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
		calls++
		return market.Series{}, NewNotFoundError(404, "no such instrument")
	})

	sleeper := &recordingSleep{}
	f := New(source, Options{MaxAttempts: 5, Backoff: Backoff{Base: time.Second, Factor: 2}, Sleep: sleeper.Sleep})

	_, err := f.Fetch(context.Background(), "ZZZ", 5)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.Kind != KindPermanent {
		t.Errorf("Kind = %q, want permanent", fe.Kind)
	}
	if calls != 1 {
		t.Errorf("source called %d times, want 1", calls)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("slept %d times, want 0", len(sleeper.delays))
	}
}

func TestFetch_RecoversAfterTransient(t *testing.T) {
	calls := 0
	source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
		calls++
		if calls < 3 {
			return market.Series{}, NewRateLimitError(429)
		}
		return series(2), nil
	})

	var attempts []int
	f := New(source, Options{
		MaxAttempts: 4,
		Sleep:       (&recordingSleep{}).Sleep,
		OnAttempt: func(symbol string, attempt int, err error) {
			attempts = append(attempts, attempt)
		},
	})

	got, err := f.Fetch(context.Background(), "AAA", 5)
	if err != nil {
		t.Fatalf("Fetch() returned unexpected error: %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("Len() = %d, want 2", got.Len())
	}
	if len(attempts) != 3 || attempts[2] != 3 {
		t.Errorf("OnAttempt saw %v, want [1 2 3]", attempts)
	}
}

func TestFetch_BackoffSchedule(t *testing.T) {
	source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
		return market.Series{}, NewTimeoutError(context.DeadlineExceeded)
	})

	sleeper := &recordingSleep{}
	f := New(source, Options{
		MaxAttempts: 5,
		Backoff:     Backoff{Base: time.Second, Factor: 2},
		Sleep:       sleeper.Sleep,
	})

	f.Fetch(context.Background(), "AAA", 5)

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, sleeper.delays[i], want[i])
		}
	}
}

func TestFetch_CancelledDuringBackoff(t *testing.T) {
	calls := 0
	source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
		calls++
		return market.Series{}, NewServerError(500)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(source, Options{MaxAttempts: 3, Backoff: Backoff{Base: time.Hour, Factor: 2}})

	_, err := f.Fetch(ctx, "AAA", 5)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.Kind != KindTransient {
		t.Errorf("Kind = %q, want transient", fe.Kind)
	}
	if calls != 1 {
		t.Errorf("source called %d times, want 1", calls)
	}
}

func TestFetch_UnclassifiedErrorIsTransient(t *testing.T) {
	calls := 0
	source := SourceFunc(func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
		calls++
		return market.Series{}, errors.New("boom")
	})

	f := New(source, Options{MaxAttempts: 2, Sleep: (&recordingSleep{}).Sleep})
	f.Fetch(context.Background(), "AAA", 5)

	if calls != 2 {
		t.Errorf("source called %d times, want 2", calls)
	}
}
