package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"pricefetch/internal/fetcher"
	"pricefetch/internal/market"
	"pricefetch/internal/validate"
)

// SeriesFetcher retrieves a symbol's trailing history. *fetcher.Fetcher implements it.
type SeriesFetcher interface {
	Fetch(ctx context.Context, symbol string, lookbackDays int) (market.Series, error)
}

// Config controls a run.
type Config struct {
	MaxWorkers   int
	LookbackDays int
	MinRows      int
}

// Outcome is what one worker reports for one symbol.
type Outcome struct {
	Symbol  string
	Series  market.Series
	Verdict validate.Verdict
	Err     error
	Elapsed time.Duration
}

// Coordinator fans symbols out to a bounded worker pool and aggregates results
type Coordinator struct {
	fetcher SeriesFetcher
	cfg     Config
	logger  *slog.Logger
}

// New creates a new Coordinator
func New(f SeriesFetcher, cfg Config) *Coordinator {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	return &Coordinator{
		fetcher: f,
		cfg:     cfg,
		logger:  slog.Default().With("component", "coordinator"),
	}
}

// Run fetches and validates every distinct symbol with at most MaxWorkers in flight.
//
// Workers never return errors to the pool, so a failing symbol cannot cancel or
// delay its siblings. Each worker sends one Outcome; only this goroutine touches the
// RunResult. Run returns once every symbol has reported.
func (c *Coordinator) Run(ctx context.Context, symbols []string) (*RunResult, error) {
	symbols = distinct(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}

	outcomes := make(chan Outcome, len(symbols))

	var g errgroup.Group
	g.SetLimit(c.cfg.MaxWorkers)

	go func() {
		for _, symbol := range symbols {
			g.Go(func() error {
				outcomes <- c.process(ctx, symbol)
				return nil
			})
		}
		g.Wait()
		close(outcomes)
	}()

	result := newRunResult(len(symbols))
	completed := 0
	for o := range outcomes {
		completed++
		c.record(result, o)
		c.logger.Debug("progress", "completed", completed, "total", len(symbols))
	}

	result.finalize()
	return result, nil
}

// process runs one symbol to a terminal outcome. A panic is turned into a rejection.
func (c *Coordinator) process(ctx context.Context, symbol string) (o Outcome) {
	start := time.Now()
	o.Symbol = symbol
	defer func() {
		if r := recover(); r != nil {
			o.Err = fmt.Errorf("panic while processing %s: %v", symbol, r)
		}
		o.Elapsed = time.Since(start)
	}()

	series, err := c.fetcher.Fetch(ctx, symbol, c.cfg.LookbackDays)
	if err != nil {
		o.Err = err
		return o
	}

	series.Symbol = symbol
	o.Series = series
	o.Verdict = validate.Validate(series, c.cfg.MinRows)
	return o
}

func (c *Coordinator) record(result *RunResult, o Outcome) {
	if o.Err != nil {
		reason := rejectionReason(o.Err)
		c.logger.Warn("symbol rejected",
			"symbol", o.Symbol,
			"reason", reason,
			"elapsed", o.Elapsed,
			"error", o.Err.Error())
		result.reject(Rejection{Symbol: o.Symbol, Reason: reason, Err: o.Err})
		return
	}

	if !o.Verdict.OK {
		c.logger.Warn("symbol rejected",
			"symbol", o.Symbol,
			"reason", o.Verdict.Reason,
			"rows", o.Verdict.Rows,
			"min_rows", o.Verdict.MinRows)
		result.reject(Rejection{Symbol: o.Symbol, Reason: Reason(o.Verdict.Reason), Rows: o.Verdict.Rows})
		return
	}

	c.logger.Info("symbol accepted", "symbol", o.Symbol, "rows", o.Verdict.Rows, "elapsed", o.Elapsed)
	result.accept(o.Series)
}

func rejectionReason(err error) Reason {
	var fe *fetcher.FetchError
	if !errors.As(err, &fe) {
		return ReasonInternal
	}
	if fe.Kind == fetcher.KindPermanent {
		return ReasonFetchPermanent
	}
	return ReasonFetchTransient
}

func distinct(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
