// Package symbols reads the ticker list that drives a run.
package symbols

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pricefetch/internal/config"
)

// Column is the header name holding ticker identifiers. Matching ignores case and
// surrounding whitespace.
const Column = "Symbol"

// Load reads a delimited file with a header row and returns the distinct, trimmed
// values of its Symbol column in first-seen order. Blank values are skipped.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, config.NewMissingFileError(path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads symbols from r; see Load.
func Parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, config.NewMalformedInputError("symbols file is empty", nil)
	}
	if err != nil {
		return nil, config.NewMalformedInputError("failed to read symbols header", err)
	}

	col := -1
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(name), Column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, config.NewMalformedInputError(
			fmt.Sprintf("symbols file must have a %q column", Column), nil)
	}

	seen := make(map[string]struct{})
	var symbols []string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, config.NewMalformedInputError(
				fmt.Sprintf("failed to read symbols row %d", line), err)
		}
		if col >= len(record) {
			continue
		}

		symbol := strings.TrimSpace(record[col])
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return nil, config.NewMalformedInputError("no symbols found in file", nil)
	}
	return symbols, nil
}
