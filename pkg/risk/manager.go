package risk

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/types"
)

// RejectReason names why check_order refused an order.
type RejectReason string

const (
	RejectOrderSizeExceeded    RejectReason = "OrderSizeExceeded"
	RejectPositionSizeExceeded RejectReason = "PositionSizeExceeded"
	RejectCircuitBreakerActive RejectReason = "CircuitBreakerActive"
	RejectLeverageExceeded     RejectReason = "LeverageExceeded"
)

// Decision is the result of a pre-trade check: either Ok (Reason is
// empty) or a Rejected(reason).
type Decision struct {
	Ok     bool
	Reason RejectReason
}

var okDecision = Decision{Ok: true}

func rejected(reason RejectReason) Decision {
	return Decision{Ok: false, Reason: reason}
}

// Metrics is a point-in-time view of process-global risk state.
type Metrics struct {
	DailyPnL             decimal.Decimal
	TotalExposure        decimal.Decimal
	CircuitBreakerActive bool
}

// ErrUnknownSide is returned by OnTrade when the caller-perspective side
// is neither Buy nor Sell.
var ErrUnknownSide = errors.New("risk: unrecognized side")

// Manager is the pre-trade screen and post-trade ledger. Per-symbol
// position state is guarded by positionsMu; dailyPnL and the circuit
// breaker flag are process-global and updated atomically, matching the
// spec's requirement that they be monotonic with trade emission order
// per symbol while allowing free interleaving across symbols.
type Manager struct {
	limits  Limits
	capital decimal.Decimal

	positionsMu sync.Mutex
	positions   map[string]*Position

	dailyPnLMu sync.Mutex
	dailyPnL   decimal.Decimal

	breakerActive atomic.Bool
}

// NewManager constructs a Manager with capital available for leverage
// calculations and the given static limits.
func NewManager(limits Limits, capital decimal.Decimal) *Manager {
	return &Manager{
		limits:    limits,
		capital:   capital,
		positions: make(map[string]*Position),
	}
}

func (m *Manager) positionFor(symbol string) *Position {
	m.positionsMu.Lock()
	defer m.positionsMu.Unlock()
	p, ok := m.positions[symbol]
	if !ok {
		p = newPosition(symbol)
		m.positions[symbol] = p
	}
	return p
}

// CheckOrder screens order before it reaches the matching engine:
// rejects oversized orders, orders that would push the symbol's
// position past its size limit, orders submitted while the circuit
// breaker is latched, and orders that would push aggregate leverage
// past the configured ceiling.
func (m *Manager) CheckOrder(order *types.Order) Decision {
	if m.breakerActive.Load() {
		return rejected(RejectCircuitBreakerActive)
	}
	if order.Quantity.GreaterThan(m.limits.MaxOrderSize) {
		return rejected(RejectOrderSizeExceeded)
	}

	pos := m.positionFor(order.Symbol)
	m.positionsMu.Lock()
	signedQty := order.Quantity
	if order.Side == types.Sell {
		signedQty = signedQty.Neg()
	}
	projectedQty := pos.Quantity.Add(signedQty).Abs()
	m.positionsMu.Unlock()

	if projectedQty.GreaterThan(m.limits.MaxPositionSize) {
		return rejected(RejectPositionSizeExceeded)
	}

	if m.limits.MaxLeverage.IsPositive() && m.capital.IsPositive() {
		price := order.Price
		if price.IsZero() {
			price = pos.AverageEntryPrice
		}
		projectedExposure := m.totalExposure().Sub(pos.notional()).Add(projectedQty.Mul(price))
		leverage := projectedExposure.Div(m.capital)
		if leverage.GreaterThan(m.limits.MaxLeverage) {
			return rejected(RejectLeverageExceeded)
		}
	}

	return okDecision
}

// totalExposure sums absolute notional exposure across all symbols at
// their own average entry price.
func (m *Manager) totalExposure() decimal.Decimal {
	m.positionsMu.Lock()
	defer m.positionsMu.Unlock()
	total := decimal.Zero
	for _, p := range m.positions {
		total = total.Add(p.notional())
	}
	return total
}

// OnTrade applies one fill to the symbol's position from the caller's
// perspective (side is the side the caller held in that trade, not
// necessarily the taker side), updates daily P&L, and latches the
// circuit breaker if the loss threshold is crossed.
func (m *Manager) OnTrade(trade *types.Trade, side types.Side) (realizedDelta decimal.Decimal, err error) {
	var signedQty decimal.Decimal
	switch side {
	case types.Buy:
		signedQty = trade.Quantity
	case types.Sell:
		signedQty = trade.Quantity.Neg()
	default:
		return decimal.Zero, ErrUnknownSide
	}

	pos := m.positionFor(trade.Symbol)
	m.positionsMu.Lock()
	realized := pos.apply(signedQty, trade.Price)
	m.positionsMu.Unlock()

	if realized.IsZero() {
		return realized, nil
	}

	m.dailyPnLMu.Lock()
	m.dailyPnL = m.dailyPnL.Add(realized)
	breach := m.limits.MaxDailyLoss.IsPositive() && m.dailyPnL.LessThanOrEqual(m.limits.MaxDailyLoss.Neg())
	m.dailyPnLMu.Unlock()

	if breach {
		m.breakerActive.Store(true)
	}

	return realized, nil
}

// ResetDaily zeroes the daily accumulator and clears the circuit
// breaker. Position state (quantity, average entry, cumulative realized
// P&L) is untouched.
func (m *Manager) ResetDaily() {
	m.dailyPnLMu.Lock()
	m.dailyPnL = decimal.Zero
	m.dailyPnLMu.Unlock()
	m.breakerActive.Store(false)
}

// Metrics returns a snapshot of process-global risk state.
func (m *Manager) Metrics() Metrics {
	m.dailyPnLMu.Lock()
	pnl := m.dailyPnL
	m.dailyPnLMu.Unlock()
	return Metrics{
		DailyPnL:             pnl,
		TotalExposure:        m.totalExposure(),
		CircuitBreakerActive: m.breakerActive.Load(),
	}
}

// Position returns a copy of the current position for symbol, or a
// fresh zero position if the symbol has never traded.
func (m *Manager) Position(symbol string) Position {
	p := m.positionFor(symbol)
	m.positionsMu.Lock()
	defer m.positionsMu.Unlock()
	return *p
}
