// Package service wires the matching core to its audit, caching, and bus
// sinks, the way the teacher's pkg/oms.OMS wired an order book to its
// event store and gateway: one owner per symbol's full lifecycle, with
// the sinks fed off the engine's own trade stream rather than inlined
// into the matching path itself.
package service

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantumflow/engine/pkg/bus"
	"github.com/quantumflow/engine/pkg/cache"
	"github.com/quantumflow/engine/pkg/eventstore"
	"github.com/quantumflow/engine/pkg/logging"
	"github.com/quantumflow/engine/pkg/matching"
	"github.com/quantumflow/engine/pkg/types"
)

// Service is the matching engine plus whatever of its optional sinks are
// configured. Snapshots and a publisher are both optional: a nil value
// for either just skips that fan-out, so the same Service works for a
// bare in-memory run and a fully wired deployment.
type Service struct {
	Engine *matching.Engine

	events    eventstore.Store
	snapshots *cache.SnapshotCache
	publisher *bus.TradePublisher
	log       *logging.Logger

	eventSeq atomic.Uint64
	onTrade  func(*types.Trade)
}

// New builds a Service around an existing engine. events defaults to a
// fresh InMemoryStore when nil; snapshots and publisher are left unset
// by passing nil, in which case Run only passes each trade to the OnTrade
// hook. Audit events are recorded by SubmitOrder, CancelOrder and
// ModifyOrder, not by Run.
func New(engine *matching.Engine, events eventstore.Store, snapshots *cache.SnapshotCache, publisher *bus.TradePublisher, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	if events == nil {
		events = eventstore.NewInMemoryStore()
	}
	return &Service{
		Engine:    engine,
		events:    events,
		snapshots: snapshots,
		publisher: publisher,
		log:       log,
	}
}

// SubmitOrder runs order through the engine and records the resulting
// lifecycle event in the audit log before returning.
func (s *Service) SubmitOrder(order *types.Order) (*matching.ExecutionResult, error) {
	res, err := s.Engine.SubmitOrder(order)
	if err != nil {
		return nil, err
	}
	s.recordEvent(res.Order, execTypeFor(res.Status))
	return res, nil
}

// CancelOrder removes a resting order and records the cancellation.
func (s *Service) CancelOrder(symbol, orderID string) bool {
	ok := s.Engine.CancelOrder(symbol, orderID)
	if ok {
		s.recordEvent(&types.Order{ID: orderID, Symbol: symbol}, eventstore.ExecCanceled)
	}
	return ok
}

// ModifyOrder replaces a resting order's price/quantity and records the
// replacement as a Replaced event.
func (s *Service) ModifyOrder(symbol, orderID string, newPrice, newQuantity decimal.Decimal) bool {
	ok := s.Engine.ModifyOrder(symbol, orderID, newPrice, newQuantity)
	if ok {
		s.recordEvent(&types.Order{ID: orderID, Symbol: symbol, Price: newPrice, Quantity: newQuantity}, eventstore.ExecReplaced)
	}
	return ok
}

func (s *Service) recordEvent(order *types.Order, execType eventstore.ExecType) {
	seq := s.eventSeq.Add(1)
	s.events.AddEvent(eventstore.EventFromResult(order, execType, order.ClientID, "", seq))
}

func execTypeFor(status types.OrderStatus) eventstore.ExecType {
	switch status {
	case types.StatusFilled:
		return eventstore.ExecFilled
	case types.StatusPartiallyFilled:
		return eventstore.ExecPartiallyFilled
	case types.StatusCanceled:
		return eventstore.ExecCanceled
	case types.StatusRejected:
		return eventstore.ExecRejected
	default:
		return eventstore.ExecNew
	}
}

// OnTrade registers a callback invoked after every fan-out, so a caller
// (a CLI printing fills as they happen, say) can observe the stream
// without opening a second reader on the engine's trade channel —
// exactly one goroutine may ever drain Engine.Trades().
func (s *Service) OnTrade(fn func(*types.Trade)) {
	s.onTrade = fn
}

// Run drains the engine's trade stream for the lifetime of ctx, pushing
// the affected symbol's refreshed book snapshot into the snapshot cache
// and publishing the trade itself onto the bus on every fill. It returns
// once the engine's trade channel closes or ctx is done; callers start it
// in its own goroutine alongside whatever submits orders, and must not
// also read from Engine.Trades() themselves.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-s.Engine.Trades():
			if !ok {
				return
			}
			s.fanOut(ctx, trade)
			if s.onTrade != nil {
				s.onTrade(trade)
			}
		}
	}
}

func (s *Service) fanOut(ctx context.Context, trade *types.Trade) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, trade); err != nil {
			s.log.Warn(ctx, "publish trade failed", zap.String("trade_id", trade.ID), zap.Error(err))
		}
	}
	if s.snapshots != nil {
		snap := s.Engine.GetBook(trade.Symbol)
		if err := s.snapshots.Put(ctx, snap); err != nil {
			s.log.Warn(ctx, "snapshot cache put failed", zap.String("symbol", trade.Symbol), zap.Error(err))
		}
	}
}
