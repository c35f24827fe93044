// Package yahoo retrieves daily price history from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"pricefetch/internal/fetcher"
	"pricefetch/internal/market"
	"pricefetch/internal/ratelimit"
)

// pricePlaces is the precision kept for prices; the API returns float noise beyond it.
const pricePlaces = 4

// ChartResponse represents the chart API response for a single symbol
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartResult holds the bars for one symbol
type ChartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartError is the provider's error payload
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Client fetches daily bars. It implements fetcher.Source.
type Client struct {
	client  *resty.Client
	suffix  string
	limiter *ratelimit.Limiter
}

// NewClient creates a chart API client. suffix is appended to symbols that do not
// already carry it (".NS" for the National Stock Exchange of India). limiter may be nil.
func NewClient(baseURL, suffix string, timeout time.Duration, limiter *ratelimit.Limiter) *Client {
	return &Client{
		client:  fetcher.NewHTTPClient(baseURL, timeout),
		suffix:  suffix,
		limiter: limiter,
	}
}

// Ticker returns the provider identifier for symbol.
func (c *Client) Ticker(symbol string) string {
	if c.suffix == "" || strings.HasSuffix(strings.ToUpper(symbol), strings.ToUpper(c.suffix)) {
		return symbol
	}
	return symbol + c.suffix
}

// History performs one request for the daily bars of symbol in [from, to].
func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) (market.Series, error) {
	if err := c.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return market.Series{}, fetcher.ClassifyTransportError(err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("ticker", c.Ticker(symbol)).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(from.Unix(), 10),
			"period2":  strconv.FormatInt(to.Unix(), 10),
			"interval": "1d",
			"events":   "history",
		}).
		Get("/{ticker}")

	if err != nil {
		return market.Series{}, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		fe := fetcher.ClassifyHTTPError(resp.StatusCode())
		if chartErr := decodeError(resp.String()); chartErr != nil && fe.Kind == fetcher.KindPermanent {
			fe.Message = chartErr.Description
		}
		return market.Series{}, fe
	}

	var result ChartResponse
	if err := json.Unmarshal([]byte(resp.String()), &result); err != nil {
		return market.Series{}, fetcher.NewDecodeError(
			fmt.Sprintf("invalid chart response for %s", symbol), err)
	}

	if result.Chart.Error != nil {
		return market.Series{}, classifyChartError(result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 {
		return market.Series{}, fetcher.NewNotFoundError(0,
			fmt.Sprintf("no chart data returned for %s", symbol))
	}

	return Parse(symbol, result.Chart.Result[0]), nil
}

// Parse converts a chart result into a date-ordered series. Bars with any missing
// price are skipped, and when two bars fall on the same day the later one wins.
func Parse(symbol string, r ChartResult) market.Series {
	series := market.Series{Symbol: symbol}
	if len(r.Indicators.Quote) == 0 {
		return series
	}
	q := r.Indicators.Quote[0]

	byDay := make(map[time.Time]int)
	for i, ts := range r.Timestamp {
		open, high, low, closePrice := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if open == nil || high == nil || low == nil || closePrice == nil {
			continue
		}

		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}

		rec := market.PriceRecord{
			Date:   market.Day(time.Unix(ts+r.Meta.GMTOffset, 0)),
			Open:   round(*open),
			High:   round(*high),
			Low:    round(*low),
			Close:  round(*closePrice),
			Volume: volume,
		}

		if idx, ok := byDay[rec.Date]; ok {
			series.Records[idx] = rec
			continue
		}
		byDay[rec.Date] = len(series.Records)
		series.Records = append(series.Records, rec)
	}

	series.SortByDate()
	return series
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(pricePlaces).InexactFloat64()
}

func decodeError(body string) *ChartError {
	var result ChartResponse
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil
	}
	return result.Chart.Error
}

func classifyChartError(e *ChartError) *fetcher.FetchError {
	if strings.EqualFold(e.Code, "Not Found") {
		return fetcher.NewNotFoundError(0, e.Description)
	}
	return fetcher.NewClientError(0, fmt.Sprintf("%s: %s", e.Code, e.Description))
}
