package coordinator

import (
	"fmt"
	"sort"
	"strings"

	"pricefetch/internal/market"
	"pricefetch/internal/validate"
)

// Reason records why a symbol was rejected.
type Reason string

const (
	ReasonEmpty            Reason = Reason(validate.ReasonEmpty)
	ReasonInsufficientRows Reason = Reason(validate.ReasonInsufficientRows)
	ReasonFetchPermanent   Reason = "fetch_permanent"
	ReasonFetchTransient   Reason = "fetch_transient"
	ReasonInternal         Reason = "internal_error"
)

// Rejection is a symbol that produced no usable series.
type Rejection struct {
	Symbol string
	Reason Reason
	// Err is the fetch error, nil for validation rejections
	Err    error
	// Rows is the row count seen by the validator
	Rows   int
}

// RunResult holds exactly one outcome per distinct input symbol. It is built by a
// single goroutine and must not be shared until Run returns it.
type RunResult struct {
	accepted []market.Series
	rejected []Rejection
	seen     map[string]struct{}
}

func newRunResult(capacity int) *RunResult {
	return &RunResult{
		seen: make(map[string]struct{}, capacity),
	}
}

func (r *RunResult) accept(s market.Series) {
	r.seen[s.Symbol] = struct{}{}
	r.accepted = append(r.accepted, s)
}

func (r *RunResult) reject(rej Rejection) {
	r.seen[rej.Symbol] = struct{}{}
	r.rejected = append(r.rejected, rej)
}

func (r *RunResult) finalize() {
	sort.Slice(r.accepted, func(i, j int) bool { return r.accepted[i].Symbol < r.accepted[j].Symbol })
	sort.Slice(r.rejected, func(i, j int) bool { return r.rejected[i].Symbol < r.rejected[j].Symbol })
}

// Accepted returns the series that passed validation, ordered by symbol.
func (r *RunResult) Accepted() []market.Series {
	return r.accepted
}

// Rejected returns the rejected symbols, ordered by symbol.
func (r *RunResult) Rejected() []Rejection {
	return r.rejected
}

// Has reports whether symbol has a recorded outcome.
func (r *RunResult) Has(symbol string) bool {
	_, ok := r.seen[symbol]
	return ok
}

// Rows returns the total number of accepted price records.
func (r *RunResult) Rows() int {
	n := 0
	for _, s := range r.accepted {
		n += s.Len()
	}
	return n
}

// Summary counts outcomes for the end-of-run report.
type Summary struct {
	Total    int
	Accepted int
	Rejected int
	Rows     int
	ByReason map[Reason]int
}

// Summary returns the outcome counts.
func (r *RunResult) Summary() Summary {
	s := Summary{
		Total:    len(r.accepted) + len(r.rejected),
		Accepted: len(r.accepted),
		Rejected: len(r.rejected),
		Rows:     r.Rows(),
		ByReason: make(map[Reason]int),
	}
	for _, rej := range r.rejected {
		s.ByReason[rej.Reason]++
	}
	return s
}

func (s Summary) String() string {
	msg := fmt.Sprintf("%d/%d symbols accepted, %d rejected, %d rows", s.Accepted, s.Total, s.Rejected, s.Rows)
	if len(s.ByReason) == 0 {
		return msg
	}

	reasons := make([]string, 0, len(s.ByReason))
	for reason, n := range s.ByReason {
		reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(reasons)
	return fmt.Sprintf("%s (%s)", msg, strings.Join(reasons, ", "))
}
