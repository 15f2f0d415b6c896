package marketdata

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestLoadBarsParsesRFC3339Timestamps(t *testing.T) {
	csvData := "timestamp,open,high,low,close,volume\n" +
		"2024-01-01T00:00:00Z,100,110,95,105,1000\n" +
		"2024-01-01T01:00:00Z,105,120,100,115,2000\n"

	src := NewCSVSource(strings.NewReader(csvData))
	bars, err := src.LoadBars("BTCUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	want, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
	if !bars[0].Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, bars[0].Timestamp)
	}
	if !bars[0].Close.Equal(d("105")) {
		t.Fatalf("expected close 105, got %s", bars[0].Close)
	}
}

func TestLoadBarsParsesEpochSecondsTimestamps(t *testing.T) {
	csvData := "1704067200,100,110,95,105,1000\n"

	src := NewCSVSource(strings.NewReader(csvData))
	bars, err := src.LoadBars("BTCUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	if bars[0].Timestamp.Unix() != 1704067200 {
		t.Fatalf("expected unix time 1704067200, got %d", bars[0].Timestamp.Unix())
	}
}

func TestLoadBarsRejectsMalformedRow(t *testing.T) {
	csvData := "not-a-timestamp,100,110,95,105,1000\ngarbage,row\n"

	src := NewCSVSource(strings.NewReader(csvData))
	_, err := src.LoadBars("BTCUSD")
	if err == nil {
		t.Fatalf("expected an error for a malformed row")
	}
}
