package orderbook

import (
	"container/heap"

	"github.com/shopspring/decimal"
)

// priceKey is the canonical, scale-independent string form of a decimal
// price used to bucket price levels — decimal.Decimal is not a safe map
// key on its own since two equal values can carry different internal
// scale (1.50 vs 1.5).
func priceKey(p decimal.Decimal) string {
	return p.String()
}

// priceHeap implements heap.Interface over distinct resting prices for one
// side of the book. less decides ordering: descending for bids (best =
// highest), ascending for asks (best = lowest).
type priceHeap struct {
	prices []decimal.Decimal
	less   func(a, b decimal.Decimal) bool
	index  map[string]bool
}

func newPriceHeap(less func(a, b decimal.Decimal) bool) *priceHeap {
	return &priceHeap{
		less:  less,
		index: make(map[string]bool),
	}
}

func (h priceHeap) Len() int { return len(h.prices) }

func (h priceHeap) Less(i, j int) bool { return h.less(h.prices[i], h.prices[j]) }

func (h priceHeap) Swap(i, j int) { h.prices[i], h.prices[j] = h.prices[j], h.prices[i] }

func (h *priceHeap) Push(x any) {
	p := x.(decimal.Decimal)
	key := priceKey(p)
	if h.index[key] {
		return
	}
	h.index[key] = true
	h.prices = append(h.prices, p)
}

func (h *priceHeap) Pop() any {
	n := len(h.prices)
	p := h.prices[n-1]
	h.prices = h.prices[:n-1]
	delete(h.index, priceKey(p))
	return p
}

func (h *priceHeap) Peek() (decimal.Decimal, bool) {
	if len(h.prices) == 0 {
		return decimal.Zero, false
	}
	return h.prices[0], true
}

// remove drops a price the level it marks has gone empty, wherever it sits
// in the heap.
func (h *priceHeap) remove(p decimal.Decimal) {
	key := priceKey(p)
	if !h.index[key] {
		return
	}
	for i, v := range h.prices {
		if priceKey(v) == key {
			heap.Remove(h, i)
			return
		}
	}
}
