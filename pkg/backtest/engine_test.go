package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/risk"
	"github.com/quantumflow/engine/pkg/types"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func bar(ts time.Time, open, high, low, close, volume string) types.OHLCV {
	return types.OHLCV{
		Timestamp: ts,
		Open:      d(open),
		High:      d(high),
		Low:       d(low),
		Close:     d(close),
		Volume:    d(volume),
	}
}

func generousLimits() risk.Limits {
	return risk.Limits{
		MaxOrderSize:    d("1000"),
		MaxPositionSize: d("1000"),
		MaxDailyLoss:    d("1000000"),
		MaxLeverage:     d("1000"),
	}
}

func TestRunProducesOneEquityPointPerBar(t *testing.T) {
	m := risk.NewManager(generousLimits(), d("10000"))
	e := NewEngine("BTCUSD", m, false, nil)

	bars := []types.OHLCV{
		bar(time.Unix(0, 0), "100", "100", "100", "100", "10"),
		bar(time.Unix(60, 0), "100", "110", "100", "105", "10"),
		bar(time.Unix(120, 0), "105", "105", "95", "98", "10"),
	}

	res, err := e.Run(bars, func(view View) []*types.Order { return nil }, d("10000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.EquityCurve) != len(bars) {
		t.Fatalf("expected %d equity points, got %d", len(bars), len(res.EquityCurve))
	}
	for _, eq := range res.EquityCurve {
		if !eq.Equal(d("10000")) {
			t.Fatalf("expected flat equity with no positions, got %s", eq)
		}
	}
}

func TestRunCrossesOrdersAndMarksEquityToClose(t *testing.T) {
	m := risk.NewManager(generousLimits(), d("10000"))
	e := NewEngine("BTCUSD", m, false, nil)

	bars := []types.OHLCV{
		bar(time.Unix(0, 0), "100", "100", "100", "100", "10"),
		bar(time.Unix(60, 0), "100", "110", "100", "110", "10"),
	}

	callCount := 0
	strategy := func(view View) []*types.Order {
		callCount++
		if callCount == 1 {
			return []*types.Order{
				types.NewOrder("BTCUSD", types.Sell, types.Limit, d("100"), d("1")),
				types.NewOrder("BTCUSD", types.Buy, types.Limit, d("100"), d("1")),
			}
		}
		return nil
	}

	res, err := e.Run(bars, strategy, d("10000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTrades != 1 {
		t.Fatalf("expected 1 trade, got %d", res.TotalTrades)
	}

	// after bar 1: long 1 @ 100, mark at close 100 -> equity 10000 + 1*100 = 10100
	if !res.EquityCurve[0].Equal(d("10100")) {
		t.Fatalf("expected equity 10100 after bar 1, got %s", res.EquityCurve[0])
	}
	// after bar 2: still long 1, mark at close 110 -> equity 10000 + 1*110 = 10110
	if !res.EquityCurve[1].Equal(d("10110")) {
		t.Fatalf("expected equity 10110 after bar 2, got %s", res.EquityCurve[1])
	}
}

func TestRunRejectsOrdersWhenGateEnabled(t *testing.T) {
	limits := generousLimits()
	limits.MaxOrderSize = d("0.5")
	m := risk.NewManager(limits, d("10000"))
	e := NewEngine("BTCUSD", m, true, nil)

	bars := []types.OHLCV{bar(time.Unix(0, 0), "100", "100", "100", "100", "10")}

	strategy := func(view View) []*types.Order {
		return []*types.Order{types.NewOrder("BTCUSD", types.Buy, types.Limit, d("100"), d("1"))}
	}

	res, err := e.Run(bars, strategy, d("10000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTrades != 0 {
		t.Fatalf("expected the oversized order to be rejected before reaching the matcher, got %d trades", res.TotalTrades)
	}
}

func TestMaxDrawdownComputesPeakToTroughDecline(t *testing.T) {
	equity := []decimal.Decimal{d("100"), d("120"), d("90"), d("110")}
	dd := maxDrawdown(equity)
	// peak 120, trough 90: (120-90)/120 = 0.25
	if !dd.Equal(d("0.25")) {
		t.Fatalf("expected max drawdown 0.25, got %s", dd)
	}
}

func TestTotalReturnComputation(t *testing.T) {
	m := risk.NewManager(generousLimits(), d("1000"))
	e := NewEngine("BTCUSD", m, false, nil)

	bars := []types.OHLCV{bar(time.Unix(0, 0), "100", "100", "100", "100", "1")}
	res, err := e.Run(bars, func(view View) []*types.Order { return nil }, d("1000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TotalReturn.IsZero() {
		t.Fatalf("expected zero return with no trades, got %s", res.TotalReturn)
	}
}
