// Package backtest replays a chronological sequence of bars through a
// strategy callback that submits orders to a matching engine, recording
// the resulting equity curve and summary performance statistics.
package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/logging"
	"github.com/quantumflow/engine/pkg/matching"
	"github.com/quantumflow/engine/pkg/orderbook"
	"github.com/quantumflow/engine/pkg/risk"
	"github.com/quantumflow/engine/pkg/types"
)

// View is the read-only market state handed to a strategy on each bar:
// the current bar itself, the resting book, and the strategy's own
// position. Strategies never see other callers' orders or internal
// engine state beyond this.
type View struct {
	Symbol   string
	Bar      types.OHLCV
	Book     orderbook.Snapshot
	Position risk.Position
}

// StrategyFunc is the single polymorphic seam in the backtest: given a
// bar and the current market view, it returns zero or more orders to
// submit. It must be a pure function of its inputs — the same bar
// sequence and view history must always produce the same orders for
// a backtest run to be deterministic.
type StrategyFunc func(view View) []*types.Order

// Result is the summary of one backtest run.
type Result struct {
	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	TotalReturn    decimal.Decimal
	SharpeRatio    decimal.Decimal
	MaxDrawdown    decimal.Decimal
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	EquityCurve    []decimal.Decimal
	Trades         []*types.Trade
}

// Engine drives one symbol's bar sequence against a matching engine and
// a risk manager. The risk manager's position ledger is always updated
// on every fill, per the live data-flow contract; GateEnabled controls
// only whether CheckOrder is consulted before submission.
type Engine struct {
	Symbol      string
	GateEnabled bool

	matcher *matching.Engine
	risk    *risk.Manager
	log     *logging.Logger
}

// NewEngine constructs a backtest engine for symbol. riskManager is
// mandatory — its position ledger is how the backtest marks equity to
// market — but gateEnabled lets a caller disable pre-trade screening
// while still getting position/P&L bookkeeping for free.
func NewEngine(symbol string, riskManager *risk.Manager, gateEnabled bool, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{
		Symbol:      symbol,
		GateEnabled: gateEnabled,
		matcher:     matching.New(log),
		risk:        riskManager,
		log:         log,
	}
}

// Run replays bars in order, invoking strategy on each and feeding its
// orders through the risk gate (if enabled) and the matching engine,
// then marking to market at the bar's close. initialCapital is the
// baseline against which equity and total return are measured.
func (e *Engine) Run(bars []types.OHLCV, strategy StrategyFunc, initialCapital decimal.Decimal) (*Result, error) {
	defer e.matcher.Close()
	go drain(e.matcher.Trades())

	var (
		allTrades     []*types.Trade
		equityCurve   []decimal.Decimal
		winningTrades int
		losingTrades  int
	)

	for _, bar := range bars {
		view := View{
			Symbol:   e.Symbol,
			Bar:      bar,
			Book:     e.matcher.GetBook(e.Symbol),
			Position: e.risk.Position(e.Symbol),
		}

		orders := strategy(view)
		for _, order := range orders {
			order.Symbol = e.Symbol

			if e.GateEnabled {
				if dec := e.risk.CheckOrder(order); !dec.Ok {
					order.Status = types.StatusRejected
					continue
				}
			}

			res, err := e.matcher.SubmitOrder(order)
			if err != nil {
				return nil, err
			}

			for _, trade := range res.Fills {
				allTrades = append(allTrades, trade)
				realized, err := e.risk.OnTrade(trade, order.Side)
				if err != nil {
					return nil, err
				}
				switch {
				case realized.IsPositive():
					winningTrades++
				case realized.IsNegative():
					losingTrades++
				}
			}
		}

		pos := e.risk.Position(e.Symbol)
		equity := initialCapital.Add(pos.Quantity.Mul(bar.Close)).Add(pos.RealizedPnL)
		equityCurve = append(equityCurve, equity)
	}

	return summarize(initialCapital, equityCurve, allTrades, winningTrades, losingTrades, bars), nil
}

func drain(trades <-chan *types.Trade) {
	for range trades {
	}
}

func summarize(initialCapital decimal.Decimal, equityCurve []decimal.Decimal, trades []*types.Trade, wins, losses int, bars []types.OHLCV) *Result {
	result := &Result{
		InitialCapital: initialCapital,
		EquityCurve:    equityCurve,
		Trades:         trades,
		TotalTrades:    len(trades),
		WinningTrades:  wins,
		LosingTrades:   losses,
	}

	if len(equityCurve) == 0 {
		result.FinalCapital = initialCapital
		return result
	}

	final := equityCurve[len(equityCurve)-1]
	result.FinalCapital = final

	if initialCapital.IsPositive() {
		result.TotalReturn = final.Sub(initialCapital).Div(initialCapital)
	}

	result.MaxDrawdown = maxDrawdown(equityCurve)
	result.SharpeRatio = sharpeRatio(equityCurve, periodsPerYear(bars))

	return result
}

// maxDrawdown is the largest peak-to-trough decline as a fraction of the
// running peak, zero if equity never fell below its running high.
func maxDrawdown(equity []decimal.Decimal) decimal.Decimal {
	if len(equity) == 0 {
		return decimal.Zero
	}

	peak := equity[0]
	worst := decimal.Zero
	for _, e := range equity {
		if e.GreaterThan(peak) {
			peak = e
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(e).Div(peak)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}

// sharpeRatio computes mean(r) / stddev(r) * sqrt(periodsPerYear) over
// per-bar returns. Returns zero when there are fewer than two equity
// points or the return series has zero variance.
func sharpeRatio(equity []decimal.Decimal, periodsPerYear float64) decimal.Decimal {
	if len(equity) < 2 {
		return decimal.Zero
	}

	returns := make(stats.Float64Data, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev.IsZero() {
			continue
		}
		r := equity[i].Sub(prev).Div(prev)
		f, _ := r.Float64()
		returns = append(returns, f)
	}
	if len(returns) == 0 {
		return decimal.Zero
	}

	mean, err := returns.Mean()
	if err != nil {
		return decimal.Zero
	}
	stddev, err := returns.StandardDeviation()
	if err != nil || stddev == 0 {
		return decimal.Zero
	}

	sharpe := (mean / stddev) * math.Sqrt(periodsPerYear)
	return decimal.NewFromFloat(sharpe)
}

// periodsPerYear infers annualization from the median spacing between
// consecutive bar timestamps, per bar granularity rather than a fixed
// daily/hourly assumption.
func periodsPerYear(bars []types.OHLCV) float64 {
	if len(bars) < 2 {
		return 1
	}

	deltas := make([]time.Duration, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		d := bars[i].Timestamp.Sub(bars[i-1].Timestamp)
		if d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return 1
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	median := deltas[len(deltas)/2]

	const year = 365.25 * 24 * float64(time.Hour)
	return year / float64(median)
}
