package risk

import "github.com/shopspring/decimal"

// Position tracks net exposure in one symbol. Quantity is signed:
// positive is long, negative is short. AverageEntryPrice tracks the
// volume-weighted cost of the currently open side only — it is left
// unchanged by reductions and recomputed whenever the position extends.
type Position struct {
	Symbol            string
	Quantity          decimal.Decimal
	AverageEntryPrice decimal.Decimal
	RealizedPnL       decimal.Decimal
}

func newPosition(symbol string) *Position {
	return &Position{
		Symbol:            symbol,
		Quantity:          decimal.Zero,
		AverageEntryPrice: decimal.Zero,
		RealizedPnL:       decimal.Zero,
	}
}

// notional returns the absolute notional value of the position at its
// own average entry price, used to aggregate total exposure across
// symbols for the leverage check.
func (p *Position) notional() decimal.Decimal {
	return p.Quantity.Abs().Mul(p.AverageEntryPrice)
}

// UnrealizedPnL marks the position to mark, the caller-supplied current
// price for the symbol.
func (p *Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return mark.Sub(p.AverageEntryPrice).Mul(p.Quantity)
}

// apply folds one fill of signedQty (positive for a buy, negative for a
// sell, from the position holder's perspective) at fillPrice into the
// position, following the extend/reduce/flip rules: extending recomputes
// the weighted-average entry price and leaves realized P&L untouched;
// reducing locks in realized P&L on the closed portion at the unchanged
// average; a flip closes the old side entirely before opening the new
// one at fillPrice. It returns the realized P&L delta from this one fill.
func (p *Position) apply(signedQty, fillPrice decimal.Decimal) decimal.Decimal {
	if signedQty.IsZero() {
		return decimal.Zero
	}

	sameDirection := p.Quantity.IsZero() ||
		(p.Quantity.IsPositive() && signedQty.IsPositive()) ||
		(p.Quantity.IsNegative() && signedQty.IsNegative())

	if sameDirection {
		p.extend(signedQty, fillPrice)
		return decimal.Zero
	}

	// Opposite direction: this fill reduces, exactly closes, or flips
	// the existing position.
	oldAbs := p.Quantity.Abs()
	fillAbs := signedQty.Abs()

	switch {
	case fillAbs.LessThanOrEqual(oldAbs):
		return p.reduce(signedQty, fillPrice)
	default:
		oldQty := p.Quantity
		closeQty := oldQty.Neg() // exactly closes the old side
		realized := p.reduce(closeQty, fillPrice)
		remainder := signedQty.Add(oldQty) // signedQty + oldQty: what is left after the close, same sign as signedQty
		p.extend(remainder, fillPrice)
		return realized
	}
}

// extend grows (or opens) the position in its current direction,
// recomputing the volume-weighted average entry price.
func (p *Position) extend(signedQty, fillPrice decimal.Decimal) {
	oldQty := p.Quantity
	oldAvg := p.AverageEntryPrice

	newQty := oldQty.Add(signedQty)
	if oldQty.IsZero() {
		p.AverageEntryPrice = fillPrice
	} else {
		num := oldAvg.Mul(oldQty.Abs()).Add(fillPrice.Mul(signedQty.Abs()))
		p.AverageEntryPrice = num.Div(newQty.Abs())
	}
	p.Quantity = newQty
}

// reduce shrinks the position toward (but not through) zero, realizing
// P&L on the closed quantity at the unchanged average entry price.
func (p *Position) reduce(signedQty, fillPrice decimal.Decimal) decimal.Decimal {
	closedQty := signedQty.Abs()
	sign := decimal.NewFromInt(1)
	if p.Quantity.IsNegative() {
		sign = decimal.NewFromInt(-1)
	}
	realized := fillPrice.Sub(p.AverageEntryPrice).Mul(closedQty).Mul(sign)

	p.Quantity = p.Quantity.Add(signedQty)
	p.RealizedPnL = p.RealizedPnL.Add(realized)
	if p.Quantity.IsZero() {
		p.AverageEntryPrice = decimal.Zero
	}
	return realized
}
