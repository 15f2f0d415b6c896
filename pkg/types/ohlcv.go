package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCV is a single historical bar, the unit the backtest engine replays.
type OHLCV struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}
