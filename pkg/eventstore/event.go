// Package eventstore records the lifecycle of every order the engine has
// seen — new, partially filled, filled, canceled, rejected — and tracks the
// ClOrdID replacement chain a gateway like pkg/feed's FIX layer produces
// when a client cancels/replaces an order under a new ClOrdID.
package eventstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/types"
)

// ExecType mirrors the status transition that produced an Event, kept
// distinct from types.OrderStatus so a store can tell "became Filled via
// this fill" apart from "became Filled because it was already fully
// filled when submitted."
type ExecType string

const (
	ExecNew             ExecType = "New"
	ExecPartiallyFilled ExecType = "PartiallyFilled"
	ExecFilled          ExecType = "Filled"
	ExecCanceled        ExecType = "Canceled"
	ExecReplaced        ExecType = "Replaced"
	ExecRejected        ExecType = "Rejected"
)

// Event is one immutable fact about an order's life.
type Event struct {
	EventID     string
	OrderID     string
	ClOrdID     string
	OrigClOrdID string
	Symbol      string
	ExecType    ExecType
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Timestamp   time.Time
}

// NewEventID derives a stable, idempotent key for an event so replays of
// the same fact (e.g. a redelivered queue message) don't double-record.
func NewEventID(orderID string, execType ExecType, seq uint64) string {
	return fmt.Sprintf("%s-%s-%d", orderID, execType, seq)
}

// EventFromResult derives the lifecycle event a matching result implies.
// clOrdID/origClOrdID are supplied by the caller because only the gateway
// boundary (pkg/feed) knows a client's replacement chain; the core engine
// only ever deals in order IDs.
func EventFromResult(res *types.Order, execType ExecType, clOrdID, origClOrdID string, seq uint64) *Event {
	return &Event{
		EventID:     NewEventID(res.ID, execType, seq),
		OrderID:     res.ID,
		ClOrdID:     clOrdID,
		OrigClOrdID: origClOrdID,
		Symbol:      res.Symbol,
		ExecType:    execType,
		Price:       res.Price,
		Quantity:    res.Quantity,
		Timestamp:   res.Timestamp,
	}
}
