package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pricefetch/internal/market"
)

// Source performs a single request for a symbol's daily history between from and to.
// Implementations return *FetchError so the retry loop can tell transient from
// permanent failures.
type Source interface {
	History(ctx context.Context, symbol string, from, to time.Time) (market.Series, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, symbol string, from, to time.Time) (market.Series, error)

// History implements Source
func (f SourceFunc) History(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
	return f(ctx, symbol, from, to)
}

// AttemptHook observes every finished attempt. err is nil on success.
type AttemptHook func(symbol string, attempt int, err error)

// Options configures a Fetcher.
type Options struct {
	// MaxAttempts is the total number of requests per symbol, including the first.
	MaxAttempts int
	Backoff     Backoff

	// Optional
	Sleep     SleepFunc
	Now       func() time.Time
	OnAttempt AttemptHook
}

// Fetcher retrieves a symbol's trailing history with bounded retries.
type Fetcher struct {
	source Source
	opts   Options
	sleep  SleepFunc
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Fetcher over source.
func New(source Source, opts Options) *Fetcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	f := &Fetcher{
		source: source,
		opts:   opts,
		sleep:  opts.Sleep,
		now:    opts.Now,
		logger: slog.Default().With("component", "fetcher"),
	}
	if f.sleep == nil {
		f.sleep = Sleep
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Fetch retrieves the trailing lookbackDays calendar days of history for symbol.
//
// Transient failures are retried until MaxAttempts requests have been made, waiting
// Backoff.Delay(n) before retry n. A permanent failure returns at once. The returned
// error is always a *FetchError with Attempts set.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, lookbackDays int) (market.Series, error) {
	to := f.now().UTC()
	from := to.AddDate(0, 0, -lookbackDays)

	var last *FetchError
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		series, err := f.source.History(ctx, symbol, from, to)
		f.observe(symbol, attempt, err)
		if err == nil {
			series.Symbol = symbol
			return series, nil
		}

		classified := *AsFetchError(err)
		classified.Attempts = attempt
		last = &classified
		if !last.Retryable() {
			return market.Series{}, last
		}
		if attempt == f.opts.MaxAttempts {
			break
		}

		delay := f.opts.Backoff.Delay(attempt)
		f.logger.Debug("retrying fetch",
			"symbol", symbol,
			"attempt", attempt,
			"delay", delay,
			"error", err.Error())

		if err := f.sleep(ctx, delay); err != nil {
			return market.Series{}, giveUp(last, fmt.Sprintf("retry aborted (%v)", err))
		}
	}

	return market.Series{}, giveUp(last, "retries exhausted")
}

// giveUp reports the final transient failure, keeping the last attempt's
// classification and underlying cause.
func giveUp(last *FetchError, reason string) *FetchError {
	final := *last
	final.Kind = KindTransient
	final.Message = fmt.Sprintf("%s: %s", reason, last.Message)
	return &final
}

func (f *Fetcher) observe(symbol string, attempt int, err error) {
	if f.opts.OnAttempt != nil {
		f.opts.OnAttempt(symbol, attempt, err)
	}
}
