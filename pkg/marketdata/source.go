// Package marketdata defines the shapes external market data collaborators
// produce — tickers, book updates, and historical bars — without
// prescribing a wire protocol. Concrete connectors (see pkg/feed) adapt a
// venue's own format into these.
package marketdata

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/types"
)

// Ticker is a last-trade/best-quote snapshot for one symbol.
type Ticker struct {
	Symbol    string
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	LastPrice decimal.Decimal
	Timestamp time.Time
}

// PriceLevel is one (price, quantity) pair in a book update.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// BookUpdate is a venue's own view of its book at an instant, not to be
// confused with pkg/orderbook.Snapshot — this is ingress shape, not the
// engine's resting state.
type BookUpdate struct {
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// Source is the contract every live ingress connector implements. It is
// not a single method: Tickers and BookUpdates each subscribe to one
// symbol's stream of that shape, and Close ends the connection.
type Source interface {
	Tickers(symbol string) (<-chan Ticker, error)
	BookUpdates(symbol string) (<-chan BookUpdate, error)
	Close() error
}

// Bars is the historical ingress contract: a finite, chronologically
// ordered sequence of OHLCV bars for one symbol.
type Bars interface {
	LoadBars(symbol string) ([]types.OHLCV, error)
}
