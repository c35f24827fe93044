// Package validate decides whether a fetched series is complete enough to keep.
package validate

import (
	"fmt"

	"pricefetch/internal/market"
)

// Reason explains why a series was rejected.
type Reason string

const (
	ReasonEmpty            Reason = "empty"
	ReasonInsufficientRows Reason = "insufficient_rows"
)

// Verdict is the outcome of Validate.
type Verdict struct {
	OK      bool
	Reason  Reason
	Rows    int
	MinRows int
}

func (v Verdict) String() string {
	if v.OK {
		return fmt.Sprintf("ok (%d rows)", v.Rows)
	}
	return fmt.Sprintf("%s (%d rows, minimum %d)", v.Reason, v.Rows, v.MinRows)
}

// Validate passes series iff it has at least one row and at least minRows rows.
func Validate(series market.Series, minRows int) Verdict {
	v := Verdict{Rows: series.Len(), MinRows: minRows}
	switch {
	case v.Rows == 0:
		v.Reason = ReasonEmpty
	case v.Rows < minRows:
		v.Reason = ReasonInsufficientRows
	default:
		v.OK = true
	}
	return v
}
