package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Historical datasets arrive either as plain CSV or xz-compressed CSV
// (the usual distribution format for multi-year tick archives).
// Columns: time,open,high,low,close,volume with a header row.

var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"20060102 150405",
}

// LoadCSV reads one candle series from path. A ".xz" suffix selects
// transparent decompression. Rows that fail to parse are counted and
// reported to stderr rather than aborting the load; a file that yields
// no candles at all is a DataError.
func LoadCSV(path, symbol string, tf Timeframe) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open xz dataset %s: %w", path, err)
		}
		src = xr
	}

	candles, badRows, err := parseCandleCSV(src, symbol, tf)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if badRows > 0 {
		fmt.Fprintf(os.Stderr, "ingest warnings: %s badRows=%d\n", path, badRows)
	}
	if len(candles) == 0 {
		return nil, &DataError{Reason: "no candles in " + path}
	}
	if err := ValidateSeries(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func parseCandleCSV(src io.Reader, symbol string, tf Timeframe) ([]Candle, int, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var candles []Candle
	badRows := 0
	first := true

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, badRows, err
		}
		if first {
			first = false
			if strings.EqualFold(rec[0], "time") || strings.EqualFold(rec[0], "timestamp") {
				continue
			}
		}
		if len(rec) < 5 {
			badRows++
			continue
		}

		ts, ok := parseTime(rec[0])
		if !ok {
			badRows++
			continue
		}

		vals := make([]float64, 4)
		bad := false
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				bad = true
				break
			}
			vals[i] = v
		}
		if bad {
			badRows++
			continue
		}

		vol := 0.0
		if len(rec) > 5 {
			vol, _ = strconv.ParseFloat(rec[5], 64)
		}

		candles = append(candles, Candle{
			Symbol:    symbol,
			Timeframe: tf,
			Time:      ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vol,
		})
	}
	return candles, badRows, nil
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// unix seconds fallback
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0).UTC(), true
	}
	return time.Time{}, false
}
