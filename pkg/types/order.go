package types

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type OrderKind string

const (
	Limit      OrderKind = "LIMIT"
	Market     OrderKind = "MARKET"
	StopLoss   OrderKind = "STOP_LOSS"
	TakeProfit OrderKind = "TAKE_PROFIT"
)

type OrderStatus string

const (
	StatusNew             OrderStatus = "New"
	StatusPartiallyFilled OrderStatus = "PartiallyFilled"
	StatusFilled          OrderStatus = "Filled"
	StatusCanceled        OrderStatus = "Canceled"
	StatusRejected        OrderStatus = "Rejected"
)

var seqCounter uint64

// nextSeq hands out a monotonically increasing creation sequence number.
// The order book does not read it: FIFO order within a price level is the
// order in which orders were added to that level's queue.
func nextSeq() uint64 {
	return atomic.AddUint64(&seqCounter, 1)
}

// Order is the shared unit of work between the risk gate, the matching
// engine and its order book. Price and Quantity are exact decimals —
// no field here is ever compared with floating point semantics.
type Order struct {
	ID           string
	Symbol       string
	Side         Side
	Kind         OrderKind
	Price        decimal.Decimal
	TriggerPrice decimal.Decimal // StopLoss / TakeProfit activation price; unused otherwise
	Quantity     decimal.Decimal
	Filled       decimal.Decimal
	Status       OrderStatus
	Timestamp    time.Time
	ClientID     string

	seq uint64
}

// NewOrder constructs an order with a fresh ID, zero fill state and the
// next creation sequence number.
func NewOrder(symbol string, side Side, kind OrderKind, price, quantity decimal.Decimal) *Order {
	return &Order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Kind:      kind,
		Price:     price,
		Quantity:  quantity,
		Filled:    decimal.Zero,
		Status:    StatusNew,
		Timestamp: time.Now(),
		seq:       nextSeq(),
	}
}

// Remaining returns quantity not yet filled.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// Seq is the order's creation sequence number. The order book orders a
// price level by queue insertion, not by Seq; a modified order keeps its
// Seq but moves to the back of its level.
func (o *Order) Seq() uint64 {
	return o.seq
}

// IsResting reports whether the order still belongs on the book.
func (o *Order) IsResting() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}

// ApplyFill advances filled quantity and recomputes status. qty must be
// positive and not exceed Remaining().
func (o *Order) ApplyFill(qty decimal.Decimal) {
	o.Filled = o.Filled.Add(qty)
	switch {
	case o.Filled.Equal(o.Quantity):
		o.Status = StatusFilled
	case o.Filled.IsPositive():
		o.Status = StatusPartiallyFilled
	}
}
