package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is emitted at the moment of a fill. Price is always the resting
// (maker) order's price; the taker crosses the spread to get it.
type Trade struct {
	ID          string
	Symbol      string
	BuyOrderID  string
	SellOrderID string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Timestamp   time.Time
	TakerSide   Side
}

func NewTrade(symbol, buyOrderID, sellOrderID string, price, quantity decimal.Decimal, takerSide Side) *Trade {
	return &Trade{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   time.Now(),
		TakerSide:   takerSide,
	}
}
