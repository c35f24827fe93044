// Package sink writes accepted price series to a single Parquet file.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"pricefetch/internal/market"
)

const secondsPerDay = 24 * 60 * 60

// Row is one output record. Date is days since the Unix epoch (Parquet DATE).
type Row struct {
	Symbol string  `parquet:"symbol,dict"`
	Date   int32   `parquet:"date,date"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume int64   `parquet:"volume"`
}

// Time returns the row's date as UTC midnight.
func (r Row) Time() time.Time {
	return time.Unix(int64(r.Date)*secondsPerDay, 0).UTC()
}

func epochDay(t time.Time) int32 {
	return int32(market.Day(t).Unix() / secondsPerDay)
}

// Rows flattens series into rows sorted by (symbol, date).
func Rows(series []market.Series) []Row {
	n := 0
	for _, s := range series {
		n += s.Len()
	}

	rows := make([]Row, 0, n)
	for _, s := range series {
		for _, rec := range s.Records {
			rows = append(rows, Row{
				Symbol: s.Symbol,
				Date:   epochDay(rec.Date),
				Open:   rec.Open,
				High:   rec.High,
				Low:    rec.Low,
				Close:  rec.Close,
				Volume: rec.Volume,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].Date < rows[j].Date
	})
	return rows
}

// Write stores the merged series at path as zstd-compressed Parquet, replacing any
// existing file. An empty input is an error and leaves path untouched.
func Write(path string, series []market.Series) (int, error) {
	rows := Rows(series)
	if len(rows) == 0 {
		return 0, &SinkError{Kind: ErrorKindEmptyResult, Path: path}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, &SinkError{Kind: ErrorKindUnwritable, Path: path, Cause: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := parquet.NewGenericWriter[Row](tmp, parquet.Compression(&parquet.Zstd))
	if _, err := w.Write(rows); err != nil {
		return 0, &SinkError{Kind: ErrorKindUnwritable, Path: path, Cause: fmt.Errorf("encode rows: %w", err)}
	}
	if err := w.Close(); err != nil {
		return 0, &SinkError{Kind: ErrorKindUnwritable, Path: path, Cause: fmt.Errorf("finish parquet: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		return 0, &SinkError{Kind: ErrorKindUnwritable, Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, &SinkError{Kind: ErrorKindUnwritable, Path: path, Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, &SinkError{Kind: ErrorKindUnwritable, Path: path, Cause: err}
	}
	committed = true

	return len(rows), nil
}

// Read loads every row of a file produced by Write.
func Read(path string) ([]Row, error) {
	return parquet.ReadFile[Row](path)
}
