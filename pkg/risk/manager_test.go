package risk

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

func defaultLimits() Limits {
	return Limits{
		MaxOrderSize:    d("10"),
		MaxPositionSize: d("100"),
		MaxDailyLoss:    d("100"),
		MaxLeverage:     d("5"),
	}
}

func tradeAt(symbol, price, qty string) *types.Order {
	return types.NewOrder(symbol, types.Buy, types.Limit, d(price), d(qty))
}

func TestCheckOrderRejectsOversizedOrder(t *testing.T) {
	m := NewManager(defaultLimits(), d("10000"))

	order := tradeAt("BTCUSD", "100", "11")
	dec := m.CheckOrder(order)

	if dec.Ok || dec.Reason != RejectOrderSizeExceeded {
		t.Fatalf("expected OrderSizeExceeded, got %+v", dec)
	}
}

func TestCheckOrderAcceptsWithinLimits(t *testing.T) {
	m := NewManager(defaultLimits(), d("10000"))

	dec := m.CheckOrder(tradeAt("BTCUSD", "100", "5"))
	if !dec.Ok {
		t.Fatalf("expected order within limits to be accepted, got %+v", dec)
	}
}

func TestCircuitBreakerLatchesAtExactDailyLossThreshold(t *testing.T) {
	m := NewManager(defaultLimits(), d("10000"))

	// open long 1 @ 100
	_, err := m.OnTrade(types.NewTrade("BTCUSD", "o1", "o2", d("100"), d("1"), types.Buy), types.Buy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// close at 0: realized pnl = (0 - 100) * 1 = -100, breaching MaxDailyLoss=100
	_, err = m.OnTrade(types.NewTrade("BTCUSD", "o3", "o4", d("0"), d("1"), types.Sell), types.Sell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics := m.Metrics()
	if !metrics.DailyPnL.Equal(d("-100")) {
		t.Fatalf("expected daily pnl -100, got %s", metrics.DailyPnL)
	}
	if !metrics.CircuitBreakerActive {
		t.Fatalf("expected circuit breaker to latch")
	}

	dec := m.CheckOrder(tradeAt("ETHUSD", "1", "1"))
	if dec.Ok || dec.Reason != RejectCircuitBreakerActive {
		t.Fatalf("expected all subsequent orders rejected by breaker, got %+v", dec)
	}
}

func TestResetDailyClearsBreakerAndAccumulator(t *testing.T) {
	m := NewManager(defaultLimits(), d("10000"))
	m.OnTrade(types.NewTrade("BTCUSD", "o1", "o2", d("100"), d("1"), types.Buy), types.Buy)
	m.OnTrade(types.NewTrade("BTCUSD", "o3", "o4", d("0"), d("1"), types.Sell), types.Sell)

	m.ResetDaily()

	metrics := m.Metrics()
	if !metrics.DailyPnL.IsZero() {
		t.Fatalf("expected daily pnl reset to zero, got %s", metrics.DailyPnL)
	}
	if metrics.CircuitBreakerActive {
		t.Fatalf("expected breaker cleared after reset")
	}

	dec := m.CheckOrder(tradeAt("BTCUSD", "100", "1"))
	if !dec.Ok {
		t.Fatalf("expected order to be accepted after reset, got %+v", dec)
	}
}

func TestPositionWeightedAverageOnExtend(t *testing.T) {
	m := NewManager(defaultLimits(), d("100000"))

	m.OnTrade(types.NewTrade("BTCUSD", "o1", "o2", d("100"), d("1"), types.Buy), types.Buy)
	m.OnTrade(types.NewTrade("BTCUSD", "o3", "o4", d("200"), d("1"), types.Buy), types.Buy)

	pos := m.Position("BTCUSD")
	if !pos.Quantity.Equal(d("2")) {
		t.Fatalf("expected quantity 2, got %s", pos.Quantity)
	}
	if !pos.AverageEntryPrice.Equal(d("150")) {
		t.Fatalf("expected average entry 150, got %s", pos.AverageEntryPrice)
	}
}

func TestPositionRealizedPnLOnPartialReduce(t *testing.T) {
	m := NewManager(defaultLimits(), d("100000"))

	m.OnTrade(types.NewTrade("BTCUSD", "o1", "o2", d("100"), d("2"), types.Buy), types.Buy)
	realized, _ := m.OnTrade(types.NewTrade("BTCUSD", "o3", "o4", d("110"), d("1"), types.Sell), types.Sell)

	if !realized.Equal(d("10")) {
		t.Fatalf("expected realized pnl 10 on the reduce, got %s", realized)
	}
	pos := m.Position("BTCUSD")
	if !pos.Quantity.Equal(d("1")) {
		t.Fatalf("expected remaining quantity 1, got %s", pos.Quantity)
	}
	if !pos.AverageEntryPrice.Equal(d("100")) {
		t.Fatalf("expected average entry unchanged at 100, got %s", pos.AverageEntryPrice)
	}
}

func TestPositionFlipClosesThenOpensOpposite(t *testing.T) {
	m := NewManager(defaultLimits(), d("100000"))

	m.OnTrade(types.NewTrade("BTCUSD", "o1", "o2", d("100"), d("1"), types.Buy), types.Buy)
	realized, _ := m.OnTrade(types.NewTrade("BTCUSD", "o3", "o4", d("90"), d("3"), types.Sell), types.Sell)

	// closes 1 @ 90 against entry 100: realized = (90-100)*1 = -10
	if !realized.Equal(d("-10")) {
		t.Fatalf("expected realized pnl -10 from the closed portion, got %s", realized)
	}
	pos := m.Position("BTCUSD")
	if !pos.Quantity.Equal(d("-2")) {
		t.Fatalf("expected flipped short position of -2, got %s", pos.Quantity)
	}
	if !pos.AverageEntryPrice.Equal(d("90")) {
		t.Fatalf("expected new short average entry 90, got %s", pos.AverageEntryPrice)
	}
}

func TestCheckOrderRejectsPositionSizeBreach(t *testing.T) {
	limits := defaultLimits()
	limits.MaxPositionSize = d("1")
	m := NewManager(limits, d("100000"))

	m.OnTrade(types.NewTrade("BTCUSD", "o1", "o2", d("100"), d("1"), types.Buy), types.Buy)

	dec := m.CheckOrder(tradeAt("BTCUSD", "100", "1"))
	if dec.Ok || dec.Reason != RejectPositionSizeExceeded {
		t.Fatalf("expected PositionSizeExceeded, got %+v", dec)
	}
}
