package feed

import (
	"fmt"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/fix44/ordercancelrequest"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/matching"
	"github.com/quantumflow/engine/pkg/types"
)

var sideToFIX = map[types.Side]enum.Side{
	types.Buy:  enum.Side_BUY,
	types.Sell: enum.Side_SELL,
}

var fixToSide = map[enum.Side]types.Side{
	enum.Side_BUY:  types.Buy,
	enum.Side_SELL: types.Sell,
}

var fixToOrdType = map[enum.OrdType]types.OrderKind{
	enum.OrdType_LIMIT:  types.Limit,
	enum.OrdType_MARKET: types.Market,
	enum.OrdType_STOP:   types.StopLoss,
}

var statusToFIX = map[types.OrderStatus]enum.OrdStatus{
	types.StatusNew:             enum.OrdStatus_NEW,
	types.StatusPartiallyFilled: enum.OrdStatus_PARTIALLY_FILLED,
	types.StatusFilled:          enum.OrdStatus_FILLED,
	types.StatusCanceled:        enum.OrdStatus_CANCELED,
	types.StatusRejected:        enum.OrdStatus_REJECTED,
}

// FixGateway converts between FIX 4.4 order messages and the engine's
// own Order/ExecutionResult shapes. It owns no session state — wiring a
// quickfix.Acceptor to actually receive these messages on the wire is a
// deployment concern outside the matching core's boundary.
type FixGateway struct {
	engine *matching.Engine
}

func NewFixGateway(engine *matching.Engine) *FixGateway {
	return &FixGateway{engine: engine}
}

// OrderFromNewOrderSingle converts an inbound NewOrderSingle into an
// Order ready for submission.
func OrderFromNewOrderSingle(msg newordersingle.NewOrderSingle) (*types.Order, error) {
	symbol, err := msg.GetSymbol()
	if err != nil {
		return nil, fmt.Errorf("feed: missing Symbol: %w", err)
	}
	fixSide, err := msg.GetSide()
	if err != nil {
		return nil, fmt.Errorf("feed: missing Side: %w", err)
	}
	side, ok := fixToSide[fixSide]
	if !ok {
		return nil, fmt.Errorf("feed: unsupported Side %v", fixSide)
	}
	fixOrdType, err := msg.GetOrdType()
	if err != nil {
		return nil, fmt.Errorf("feed: missing OrdType: %w", err)
	}
	kind, ok := fixToOrdType[fixOrdType]
	if !ok {
		return nil, fmt.Errorf("feed: unsupported OrdType %v", fixOrdType)
	}

	price := decimal.Zero
	if kind == types.Limit || kind == types.StopLoss {
		p, err := msg.GetPrice()
		if err != nil {
			return nil, fmt.Errorf("feed: missing Price for %v order: %w", kind, err)
		}
		price = p
	}

	qty, err := msg.GetOrderQty()
	if err != nil {
		return nil, fmt.Errorf("feed: missing OrderQty: %w", err)
	}

	order := types.NewOrder(symbol, side, kind, price, qty)
	if clOrdID, err := msg.GetClOrdID(); err == nil {
		order.ClientID = clOrdID
	}
	return order, nil
}

// fixDecimalPlaces is the scale used when encoding quantity/price fields
// onto the wire; the engine itself carries full decimal precision and
// only truncates here, at the FIX boundary.
const fixDecimalPlaces = 8

// ExecutionReportFromResult builds an outbound ExecutionReport reflecting
// one SubmitOrder result.
func ExecutionReportFromResult(res *matching.ExecutionResult) (executionreport.ExecutionReport, error) {
	fixStatus, ok := statusToFIX[res.Status]
	if !ok {
		return executionreport.ExecutionReport{}, fmt.Errorf("feed: unmapped OrderStatus %v", res.Status)
	}

	execReportMsg := executionreport.FromMessage(quickfix.NewMessage())
	execReportMsg.SetMsgType(enum.MsgType_EXECUTION_REPORT)
	execReportMsg.SetOrderID(res.Order.ID)
	execReportMsg.SetExecID(res.Order.ID + "-" + time.Now().UTC().Format("150405.000000000"))
	execReportMsg.SetExecType(execTypeFor(res.Status))
	execReportMsg.SetOrdStatus(fixStatus)
	execReportMsg.SetSide(sideToFIX[res.Order.Side])
	execReportMsg.SetSymbol(res.Order.Symbol)
	execReportMsg.SetClOrdID(res.Order.ClientID)
	execReportMsg.SetOrderQty(res.Order.Quantity, fixDecimalPlaces)
	execReportMsg.SetLeavesQty(res.RemainingQuantity, fixDecimalPlaces)
	execReportMsg.SetCumQty(res.Order.Filled, fixDecimalPlaces)
	execReportMsg.SetAvgPx(res.Order.Price, fixDecimalPlaces)

	return execReportMsg, nil
}

func execTypeFor(status types.OrderStatus) enum.ExecType {
	switch status {
	case types.StatusFilled:
		return enum.ExecType_FILL
	case types.StatusPartiallyFilled:
		return enum.ExecType_PARTIAL_FILL
	case types.StatusCanceled:
		return enum.ExecType_CANCELED
	case types.StatusRejected:
		return enum.ExecType_REJECTED
	default:
		return enum.ExecType_NEW
	}
}

// CancelFromRequest converts an inbound OrderCancelRequest into the
// (symbol, orderID) pair CancelOrder expects.
func CancelFromRequest(msg ordercancelrequest.OrderCancelRequest) (symbol, orderID string, err error) {
	symbol, err = msg.GetSymbol()
	if err != nil {
		return "", "", fmt.Errorf("feed: missing Symbol: %w", err)
	}
	orderID, err = msg.GetOrigClOrdID()
	if err != nil {
		return "", "", fmt.Errorf("feed: missing OrigClOrdID: %w", err)
	}
	return symbol, orderID, nil
}

// HandleNewOrderSingle is the gateway's one entry point for inbound
// order traffic: decode, submit, and hand back the execution report a
// session wrapper would send out.
func (g *FixGateway) HandleNewOrderSingle(msg newordersingle.NewOrderSingle) (executionreport.ExecutionReport, error) {
	order, err := OrderFromNewOrderSingle(msg)
	if err != nil {
		return executionreport.ExecutionReport{}, err
	}
	res, err := g.engine.SubmitOrder(order)
	if err != nil {
		return executionreport.ExecutionReport{}, err
	}
	return ExecutionReportFromResult(res)
}

// HandleOrderCancelRequest is the gateway's entry point for inbound
// cancel traffic.
func (g *FixGateway) HandleOrderCancelRequest(msg ordercancelrequest.OrderCancelRequest) (bool, error) {
	symbol, orderID, err := CancelFromRequest(msg)
	if err != nil {
		return false, err
	}
	return g.engine.CancelOrder(symbol, orderID), nil
}
