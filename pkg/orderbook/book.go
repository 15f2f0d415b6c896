// Package orderbook implements the per-symbol, double-sided limit order
// book: a twin ladder of price levels, each level a FIFO queue of resting
// orders. It knows nothing about crossing orders against each other —
// that is the matching engine's job — it only knows how to rest, find,
// cancel, and report on orders at a price.
package orderbook

import (
	"container/heap"
	"sync"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/types"
)

type location struct {
	side  types.Side
	price decimal.Decimal
}

// Book is a single symbol's bids and asks.
type Book struct {
	Symbol string

	mu sync.Mutex

	bids    map[string]*deque.Deque[*types.Order]
	asks    map[string]*deque.Deque[*types.Order]
	bidHeap *priceHeap
	askHeap *priceHeap

	ordersByID map[string]location
}

// New creates an empty book for symbol.
func New(symbol string) *Book {
	return &Book{
		Symbol:     symbol,
		bids:       make(map[string]*deque.Deque[*types.Order]),
		asks:       make(map[string]*deque.Deque[*types.Order]),
		bidHeap:    newPriceHeap(func(a, b decimal.Decimal) bool { return a.GreaterThan(b) }),
		askHeap:    newPriceHeap(func(a, b decimal.Decimal) bool { return a.LessThan(b) }),
		ordersByID: make(map[string]location),
	}
}

func (b *Book) sideBook(side types.Side) (map[string]*deque.Deque[*types.Order], *priceHeap) {
	if side == types.Buy {
		return b.bids, b.bidHeap
	}
	return b.asks, b.askHeap
}

// Add rests order on the book at its own price, appended to the FIFO
// queue for that price level. Callers — the matching engine — must have
// already run the order through matching; Add never crosses the book.
func (b *Book) Add(order *types.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addLocked(order)
}

func (b *Book) addLocked(order *types.Order) {
	book, h := b.sideBook(order.Side)
	key := priceKey(order.Price)
	q, ok := book[key]
	if !ok {
		q = &deque.Deque[*types.Order]{}
		book[key] = q
		heap.Push(h, order.Price)
	}
	q.PushBack(order)
	b.ordersByID[order.ID] = location{side: order.Side, price: order.Price}
}

// Cancel removes a resting order by ID. It is idempotent: canceling an
// unknown or already-canceled ID returns (nil, false) without mutating
// the book.
func (b *Book) Cancel(orderID string) (*types.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.ordersByID[orderID]
	if !ok {
		return nil, false
	}
	order := b.removeFromLevelLocked(loc.side, loc.price, orderID)
	if order == nil {
		return nil, false
	}
	delete(b.ordersByID, orderID)
	return order, true
}

// Modify changes the price and/or quantity of a resting order. The order
// is always removed and re-queued at the back of the level for newPrice,
// losing its former time priority whether the price or only the quantity
// changed, as a cancel-replace would. newQty becomes its full quantity:
// fill state is reset to zero and status to New.
func (b *Book) Modify(orderID string, newPrice, newQty decimal.Decimal) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.ordersByID[orderID]
	if !ok {
		return false
	}

	order := b.removeFromLevelLocked(loc.side, loc.price, orderID)
	if order == nil {
		return false
	}

	order.Price = newPrice
	order.Quantity = newQty
	order.Filled = decimal.Zero
	order.Status = types.StatusNew

	b.addLocked(order)
	return true
}

// removeFromLevelLocked scans the FIFO queue at price for orderID and
// removes it, deleting the level if it becomes empty. Cancellation of a
// resting order touches only the one level it lives on; the queue scan
// is linear in that level's depth rather than the O(log L) search across
// levels spec.md targets for a fresh lookup — an accepted simplification
// since gammazero/deque has no native "remove by value".
func (b *Book) removeFromLevelLocked(side types.Side, price decimal.Decimal, orderID string) *types.Order {
	book, h := b.sideBook(side)
	key := priceKey(price)
	q, ok := book[key]
	if !ok {
		return nil
	}

	var found *types.Order
	kept := &deque.Deque[*types.Order]{}
	for q.Len() > 0 {
		o := q.PopFront()
		if o.ID == orderID {
			found = o
			continue
		}
		kept.PushBack(o)
	}
	if found == nil {
		return nil
	}
	if kept.Len() == 0 {
		delete(book, key)
		h.remove(price)
	} else {
		book[key] = kept
	}
	return found
}

// BestBid returns the highest resting bid price, if any.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bidHeap.Peek()
}

// BestAsk returns the lowest resting ask price, if any.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.askHeap.Peek()
}

// PeekOpposite returns the head order of the best price level on the
// opposite side from side, without removing it. It is the matching
// engine's entry point into the book during a matching loop.
func (b *Book) PeekOpposite(side types.Side) (*types.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	opp := opposite(side)
	book, h := b.sideBook(opp)
	for {
		price, ok := h.Peek()
		if !ok {
			return nil, false
		}
		q, ok := book[priceKey(price)]
		if !ok || q.Len() == 0 {
			h.remove(price)
			delete(book, priceKey(price))
			continue
		}
		return q.Front(), true
	}
}

// PopHeadIfFilled removes the head order of its price level when it has
// been fully consumed by the matching loop, cleaning the level if it is
// now empty. It is a no-op if the head is not the given order.
func (b *Book) PopHeadIfFilled(side types.Side, order *types.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	opp := opposite(side)
	book, h := b.sideBook(opp)
	key := priceKey(order.Price)
	q, ok := book[key]
	if !ok || q.Len() == 0 || q.Front().ID != order.ID || order.Remaining().IsPositive() {
		return
	}
	q.PopFront()
	delete(b.ordersByID, order.ID)
	if q.Len() == 0 {
		delete(book, key)
		h.remove(order.Price)
	}
}

func opposite(side types.Side) types.Side {
	if side == types.Buy {
		return types.Sell
	}
	return types.Buy
}

// DepthLevel is one aggregated price/quantity pair.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Depth returns up to levels price-aggregated quantities per side, bids
// in descending price order and asks ascending.
func (b *Book) Depth(levels int) (bids, asks []DepthLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bids = aggregateLevels(b.bids, b.bidHeap, levels)
	asks = aggregateLevels(b.asks, b.askHeap, levels)
	return bids, asks
}

func aggregateLevels(book map[string]*deque.Deque[*types.Order], h *priceHeap, levels int) []DepthLevel {
	prices := make([]decimal.Decimal, len(h.prices))
	copy(prices, h.prices)
	sortByHeapOrder(prices, h.less)

	out := make([]DepthLevel, 0, levels)
	for _, p := range prices {
		if len(out) >= levels {
			break
		}
		q, ok := book[priceKey(p)]
		if !ok {
			continue
		}
		total := decimal.Zero
		for i := 0; i < q.Len(); i++ {
			total = total.Add(q.At(i).Remaining())
		}
		out = append(out, DepthLevel{Price: p, Quantity: total})
	}
	return out
}

func sortByHeapOrder(prices []decimal.Decimal, less func(a, b decimal.Decimal) bool) {
	// simple insertion sort: level counts are small, and this keeps the
	// ordering identical to the heap's own comparator without importing
	// sort.Slice's closure overhead on a hot path.
	for i := 1; i < len(prices); i++ {
		for j := i; j > 0 && less(prices[j], prices[j-1]); j-- {
			prices[j], prices[j-1] = prices[j-1], prices[j]
		}
	}
}

// Snapshot is a full materialization of the ladder, every resting order
// in FIFO order within its level.
type Snapshot struct {
	Symbol string
	Bids   map[string][]*types.Order
	Asks   map[string][]*types.Order
}

// Snapshot materializes the full book. Orders are copied by pointer;
// callers must treat them as read-only.
func (b *Book) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		Symbol: b.Symbol,
		Bids:   make(map[string][]*types.Order, len(b.bids)),
		Asks:   make(map[string][]*types.Order, len(b.asks)),
	}
	for k, q := range b.bids {
		snap.Bids[k] = dequeToSlice(q)
	}
	for k, q := range b.asks {
		snap.Asks[k] = dequeToSlice(q)
	}
	return snap
}

func dequeToSlice(q *deque.Deque[*types.Order]) []*types.Order {
	out := make([]*types.Order, q.Len())
	for i := 0; i < q.Len(); i++ {
		out[i] = q.At(i)
	}
	return out
}
