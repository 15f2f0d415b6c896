package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/types"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestOrder(side types.Side, price, qty string) *types.Order {
	return types.NewOrder("BTC-USD", side, types.Limit, d(price), d(qty))
}

func TestAddRestsOrderAtBestPrice(t *testing.T) {
	b := New("BTC-USD")
	o := newTestOrder(types.Buy, "100.00", "1")
	b.Add(o)

	best, ok := b.BestBid()
	if !ok {
		t.Fatalf("expected a best bid")
	}
	if !best.Equal(d("100.00")) {
		t.Fatalf("expected best bid 100.00, got %s", best)
	}
}

func TestBestBidPicksHighestPrice(t *testing.T) {
	b := New("BTC-USD")
	b.Add(newTestOrder(types.Buy, "100.00", "1"))
	b.Add(newTestOrder(types.Buy, "101.00", "1"))
	b.Add(newTestOrder(types.Buy, "99.50", "1"))

	best, _ := b.BestBid()
	if !best.Equal(d("101.00")) {
		t.Fatalf("expected best bid 101.00, got %s", best)
	}
}

func TestBestAskPicksLowestPrice(t *testing.T) {
	b := New("BTC-USD")
	b.Add(newTestOrder(types.Sell, "100.00", "1"))
	b.Add(newTestOrder(types.Sell, "98.00", "1"))
	b.Add(newTestOrder(types.Sell, "99.00", "1"))

	best, _ := b.BestAsk()
	if !best.Equal(d("98.00")) {
		t.Fatalf("expected best ask 98.00, got %s", best)
	}
}

func TestPeekOppositeReturnsFIFOHead(t *testing.T) {
	b := New("BTC-USD")
	first := newTestOrder(types.Sell, "100.00", "1")
	second := newTestOrder(types.Sell, "100.00", "1")
	b.Add(first)
	b.Add(second)

	head, ok := b.PeekOpposite(types.Buy)
	if !ok {
		t.Fatalf("expected a resting ask")
	}
	if head.ID != first.ID {
		t.Fatalf("expected FIFO head to be the first order added")
	}
}

func TestPopHeadIfFilledCleansEmptyLevel(t *testing.T) {
	b := New("BTC-USD")
	o := newTestOrder(types.Sell, "100.00", "1")
	b.Add(o)
	o.ApplyFill(o.Quantity)

	b.PopHeadIfFilled(types.Buy, o)

	if _, ok := b.BestAsk(); ok {
		t.Fatalf("expected ask side to be empty after consuming its only order")
	}
	if _, ok := b.Cancel(o.ID); ok {
		t.Fatalf("expected order to be gone from the ID index")
	}
}

func TestCancelRemovesRestingOrder(t *testing.T) {
	b := New("BTC-USD")
	o := newTestOrder(types.Buy, "100.00", "1")
	b.Add(o)

	got, ok := b.Cancel(o.ID)
	if !ok || got.ID != o.ID {
		t.Fatalf("expected to cancel order %s", o.ID)
	}
	if _, ok := b.BestBid(); ok {
		t.Fatalf("expected empty book after canceling its only order")
	}
}

func TestCancelUnknownOrderIsIdempotent(t *testing.T) {
	b := New("BTC-USD")
	if _, ok := b.Cancel("does-not-exist"); ok {
		t.Fatalf("expected cancel of unknown order to report false")
	}
}

func TestCancelLeavesRemainingOrdersAtLevel(t *testing.T) {
	b := New("BTC-USD")
	first := newTestOrder(types.Buy, "100.00", "1")
	second := newTestOrder(types.Buy, "100.00", "1")
	b.Add(first)
	b.Add(second)

	b.Cancel(first.ID)

	head, ok := b.PeekOpposite(types.Sell)
	if !ok || head.ID != second.ID {
		t.Fatalf("expected remaining order to still be resting")
	}
}

func TestModifyPriceMovesOrderToNewLevel(t *testing.T) {
	b := New("BTC-USD")
	o := newTestOrder(types.Buy, "100.00", "1")
	b.Add(o)

	if ok := b.Modify(o.ID, d("101.00"), d("1")); !ok {
		t.Fatalf("expected modify to succeed")
	}

	best, _ := b.BestBid()
	if !best.Equal(d("101.00")) {
		t.Fatalf("expected best bid to move to 101.00, got %s", best)
	}
}

func TestModifyUnknownOrderFails(t *testing.T) {
	b := New("BTC-USD")
	if ok := b.Modify("missing", d("1"), d("1")); ok {
		t.Fatalf("expected modify of unknown order to fail")
	}
}

func TestDepthAggregatesQuantityPerLevel(t *testing.T) {
	b := New("BTC-USD")
	b.Add(newTestOrder(types.Buy, "100.00", "1"))
	b.Add(newTestOrder(types.Buy, "100.00", "2"))
	b.Add(newTestOrder(types.Buy, "99.00", "5"))

	bids, _ := b.Depth(10)
	if len(bids) != 2 {
		t.Fatalf("expected 2 aggregated levels, got %d", len(bids))
	}
	if !bids[0].Price.Equal(d("100.00")) || !bids[0].Quantity.Equal(d("3")) {
		t.Fatalf("expected top level 100.00 qty 3, got %s qty %s", bids[0].Price, bids[0].Quantity)
	}
	if !bids[1].Price.Equal(d("99.00")) || !bids[1].Quantity.Equal(d("5")) {
		t.Fatalf("expected second level 99.00 qty 5, got %s qty %s", bids[1].Price, bids[1].Quantity)
	}
}

func TestDepthRespectsLevelLimit(t *testing.T) {
	b := New("BTC-USD")
	b.Add(newTestOrder(types.Sell, "100.00", "1"))
	b.Add(newTestOrder(types.Sell, "101.00", "1"))
	b.Add(newTestOrder(types.Sell, "102.00", "1"))

	_, asks := b.Depth(2)
	if len(asks) != 2 {
		t.Fatalf("expected depth to be capped at 2 levels, got %d", len(asks))
	}
}

func TestSnapshotReflectsRestingOrders(t *testing.T) {
	b := New("BTC-USD")
	o := newTestOrder(types.Buy, "100.00", "1")
	b.Add(o)

	snap := b.Snapshot()
	level, ok := snap.Bids[priceKey(d("100.00"))]
	if !ok || len(level) != 1 || level[0].ID != o.ID {
		t.Fatalf("expected snapshot to contain the resting order")
	}
}
