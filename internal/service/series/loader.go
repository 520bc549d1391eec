package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"RegimeScan/pkg/util"
)

// LoadCSV reads a cleaned price file with a Date,Price header — the I/O
// contract of the upstream preprocessing pipeline. Dates are accepted as
// 2006-01-02 or RFC3339.
func LoadCSV(path string) ([]time.Time, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, priceCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateCol = i
		case "price":
			priceCol = i
		}
	}
	if dateCol < 0 || priceCol < 0 {
		return nil, nil, fmt.Errorf("header %v: need Date and Price columns", header)
	}

	var dates []time.Time
	var prices []float64
	row := 1
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", row, err)
		}
		row++

		d, ok := util.ParseDate(rec[dateCol])
		if !ok {
			return nil, nil, fmt.Errorf("row %d: unparseable date %q", row, rec[dateCol])
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(rec[priceCol]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: unparseable price %q: %w", row, rec[priceCol], err)
		}
		dates = append(dates, d)
		prices = append(prices, p)
	}
	return dates, prices, nil
}
