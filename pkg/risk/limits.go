// Package risk implements the pre-trade screen and post-trade position
// ledger that sits between an order's acceptance and its submission to
// the matching engine: size/exposure/leverage limits on the way in,
// weighted-average position accounting and a daily-loss circuit breaker
// on the way out.
package risk

import "github.com/shopspring/decimal"

// Limits is the immutable configuration a Manager is constructed with.
type Limits struct {
	MaxOrderSize    decimal.Decimal
	MaxPositionSize decimal.Decimal
	MaxDailyLoss    decimal.Decimal
	MaxLeverage     decimal.Decimal
}
