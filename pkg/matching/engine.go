// Package matching implements price-time priority order matching on top
// of pkg/orderbook, owning one book per symbol and emitting trades on an
// unbounded outbound channel as they occur.
package matching

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantumflow/engine/pkg/logging"
	"github.com/quantumflow/engine/pkg/orderbook"
	"github.com/quantumflow/engine/pkg/types"
)

// RejectReason names why submit_order returned a Rejected result without
// touching book state.
type RejectReason string

const (
	RejectZeroQuantity  RejectReason = "ZeroQuantity"
	RejectInvalidPrice  RejectReason = "InvalidPrice"
	RejectUnknownSymbol RejectReason = "UnknownSymbol"
)

// ExecutionResult is the outcome of submitting one order: the fills it
// produced (in the order they occurred), its final status, and whatever
// quantity is left unfilled — resting on the book, or void if the order
// was a Market order that could not be fully filled.
type ExecutionResult struct {
	Order             *types.Order
	Status            types.OrderStatus
	Fills             []*types.Trade
	RemainingQuantity decimal.Decimal
	RejectReason      RejectReason
}

type symbolState struct {
	mu   sync.Mutex
	book *orderbook.Book
}

// Engine owns a lazily-created OrderBook per symbol and matches incoming
// orders against it. Each symbol's book is mutated under its own lock,
// so distinct symbols never contend with each other.
type Engine struct {
	mapMu sync.RWMutex
	books map[string]*symbolState

	trades *tradeChannel
	log    *logging.Logger
}

// New constructs an Engine with no symbols yet registered.
func New(log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{
		books:  make(map[string]*symbolState),
		trades: newTradeChannel(),
		log:    log,
	}
}

// Trades is the outbound stream of fills, in the order they occurred per
// symbol. Consumers must keep reading it; the channel itself never
// blocks the matching loop, but memory grows if nobody ever drains it.
func (e *Engine) Trades() <-chan *types.Trade {
	return e.trades.Out()
}

// Close stops the trade forwarder. Call once, after no more orders will
// be submitted.
func (e *Engine) Close() {
	e.trades.Close()
}

func (e *Engine) stateFor(symbol string) *symbolState {
	e.mapMu.RLock()
	st, ok := e.books[symbol]
	e.mapMu.RUnlock()
	if ok {
		return st
	}

	e.mapMu.Lock()
	defer e.mapMu.Unlock()
	if st, ok = e.books[symbol]; ok {
		return st
	}
	st = &symbolState{book: orderbook.New(symbol)}
	e.books[symbol] = st
	return st
}

// GetBook returns a read-only snapshot of symbol's book. An unknown
// symbol returns an empty snapshot rather than an error, mirroring
// get_book's "lazily created" contract — peeking a symbol that has
// never traded is not a failure.
func (e *Engine) GetBook(symbol string) orderbook.Snapshot {
	e.mapMu.RLock()
	st, ok := e.books[symbol]
	e.mapMu.RUnlock()
	if !ok {
		return orderbook.Snapshot{Symbol: symbol, Bids: map[string][]*types.Order{}, Asks: map[string][]*types.Order{}}
	}
	return st.book.Snapshot()
}

// CancelOrder removes a resting order from symbol's book. Idempotent:
// canceling twice, or an unknown ID, returns false without error.
func (e *Engine) CancelOrder(symbol, orderID string) bool {
	e.mapMu.RLock()
	st, ok := e.books[symbol]
	e.mapMu.RUnlock()
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	order, ok := st.book.Cancel(orderID)
	if !ok {
		return false
	}
	order.Status = types.StatusCanceled
	return true
}

// ModifyOrder replaces the price and/or quantity of a resting order,
// re-queued behind any existing orders at its (possibly new) price
// level. Returns false for an unknown order or symbol.
func (e *Engine) ModifyOrder(symbol, orderID string, newPrice, newQuantity decimal.Decimal) bool {
	e.mapMu.RLock()
	st, ok := e.books[symbol]
	e.mapMu.RUnlock()
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.book.Modify(orderID, newPrice, newQuantity)
}

// SubmitOrder runs order through the matching loop against its symbol's
// book, per the price-time priority algorithm: while the order has
// remaining quantity and the opposing side has liquidity that crosses,
// fill against the resting head order at the resting order's price,
// FIFO within a price level, best price first across levels. Any
// unfilled residual either rests (Limit) or is discarded (Market,
// Stop/TakeProfit once converted).
func (e *Engine) SubmitOrder(order *types.Order) (*ExecutionResult, error) {
	if !order.Quantity.IsPositive() {
		order.Status = types.StatusRejected
		return &ExecutionResult{Order: order, Status: types.StatusRejected, RejectReason: RejectZeroQuantity}, nil
	}
	if order.Kind == types.Limit && !order.Price.IsPositive() {
		order.Status = types.StatusRejected
		return &ExecutionResult{Order: order, Status: types.StatusRejected, RejectReason: RejectInvalidPrice}, nil
	}

	// Stop orders have no activation machinery in the core; the minimum
	// conforming behavior is to treat them as a Market order on arrival.
	effectiveKind := order.Kind
	if effectiveKind == types.StopLoss || effectiveKind == types.TakeProfit {
		effectiveKind = types.Market
	}

	st := e.stateFor(order.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	fills, err := e.matchLocked(st.book, order, effectiveKind)
	if err != nil {
		return nil, err
	}

	remaining := order.Remaining()
	switch effectiveKind {
	case types.Limit:
		if remaining.IsPositive() {
			st.book.Add(order)
		}
	default: // Market, and converted Stop/TakeProfit
		if remaining.IsZero() {
			order.Status = types.StatusFilled
		} else {
			order.Status = types.StatusCanceled
		}
	}

	e.log.Debug(context.Background(), "order submitted",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.Int("fills", len(fills)),
		zap.String("status", string(order.Status)))

	return &ExecutionResult{
		Order:             order,
		Status:            order.Status,
		Fills:             fills,
		RemainingQuantity: remaining,
	}, nil
}

func (e *Engine) matchLocked(book *orderbook.Book, order *types.Order, kind types.OrderKind) ([]*types.Trade, error) {
	var fills []*types.Trade

	for order.Remaining().IsPositive() {
		head, ok := book.PeekOpposite(order.Side)
		if !ok {
			break
		}

		if kind == types.Limit && !crosses(order, head) {
			break
		}

		fillQty := decimal.Min(order.Remaining(), head.Remaining())
		if fillQty.IsNegative() || fillQty.IsZero() {
			return nil, ErrInvariantViolation
		}

		head.ApplyFill(fillQty)
		order.ApplyFill(fillQty)

		buyID, sellID := order.ID, head.ID
		if order.Side == types.Sell {
			buyID, sellID = head.ID, order.ID
		}
		trade := types.NewTrade(order.Symbol, buyID, sellID, head.Price, fillQty, order.Side)
		fills = append(fills, trade)
		e.trades.publish(trade)

		if head.Status == types.StatusFilled {
			book.PopHeadIfFilled(order.Side, head)
		}
	}

	if best, ok := book.BestBid(); ok {
		if worst, ok2 := book.BestAsk(); ok2 && best.GreaterThanOrEqual(worst) {
			return nil, ErrInvariantViolation
		}
	}

	return fills, nil
}

func crosses(taker *types.Order, maker *types.Order) bool {
	if taker.Side == types.Buy {
		return maker.Price.LessThanOrEqual(taker.Price)
	}
	return maker.Price.GreaterThanOrEqual(taker.Price)
}

