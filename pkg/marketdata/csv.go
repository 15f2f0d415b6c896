package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/types"
)

// CSVSource loads historical bars from a reader with one row per bar:
// timestamp,open,high,low,close,volume. The header row, if present, is
// detected and skipped by checking whether the first column parses as a
// timestamp.
type CSVSource struct {
	r io.Reader
}

func NewCSVSource(r io.Reader) *CSVSource {
	return &CSVSource{r: r}
}

// LoadBars reads every row into an OHLCV bar. Timestamps are accepted in
// RFC-3339 or epoch-seconds form; a malformed row is an IngressError,
// returned immediately rather than skipped, leaving it to the caller to
// decide whether to abort or retry with a cleaned file.
func (c *CSVSource) LoadBars(symbol string) ([]types.OHLCV, error) {
	reader := csv.NewReader(c.r)
	reader.TrimLeadingSpace = true

	var bars []types.OHLCV
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("marketdata: csv read row %d: %w", rowNum+1, err)
		}
		rowNum++

		if len(record) < 6 {
			return nil, fmt.Errorf("marketdata: row %d has %d columns, want 6", rowNum, len(record))
		}

		ts, ok := parseTimestamp(record[0])
		if !ok {
			if rowNum == 1 {
				// likely a header row; skip it and keep going
				continue
			}
			return nil, fmt.Errorf("marketdata: row %d: unparseable timestamp %q", rowNum, record[0])
		}

		open, err1 := decimal.NewFromString(strings.TrimSpace(record[1]))
		high, err2 := decimal.NewFromString(strings.TrimSpace(record[2]))
		low, err3 := decimal.NewFromString(strings.TrimSpace(record[3]))
		close, err4 := decimal.NewFromString(strings.TrimSpace(record[4]))
		volume, err5 := decimal.NewFromString(strings.TrimSpace(record[5]))
		if err := firstErr(err1, err2, err3, err4, err5); err != nil {
			return nil, fmt.Errorf("marketdata: row %d: %w", rowNum, err)
		}

		bars = append(bars, types.OHLCV{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		})
	}

	return bars, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), true
	}
	return time.Time{}, false
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
