package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/eventstore"
	"github.com/quantumflow/engine/pkg/matching"
	"github.com/quantumflow/engine/pkg/types"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func limitOrder(side types.Side, price, qty string) *types.Order {
	return types.NewOrder("BTCUSD", side, types.Limit, d(price), d(qty))
}

func TestSubmitOrderRecordsAuditEvent(t *testing.T) {
	engine := matching.New(nil)
	defer engine.Close()

	events := eventstore.NewInMemoryStore()
	svc := New(engine, events, nil, nil, nil)

	sell := limitOrder(types.Sell, "100", "1")
	if _, err := svc.SubmitOrder(sell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := events.History(sell.ID)
	if len(history) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(history))
	}
	if history[0].ExecType != eventstore.ExecNew {
		t.Fatalf("expected New event for a resting order, got %s", history[0].ExecType)
	}
}

func TestSubmitOrderRecordsFilledEvent(t *testing.T) {
	engine := matching.New(nil)
	defer engine.Close()

	events := eventstore.NewInMemoryStore()
	svc := New(engine, events, nil, nil, nil)

	if _, err := svc.SubmitOrder(limitOrder(types.Sell, "100", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buy := limitOrder(types.Buy, "100", "1")
	if _, err := svc.SubmitOrder(buy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := events.History(buy.ID)
	if len(history) != 1 || history[0].ExecType != eventstore.ExecFilled {
		t.Fatalf("expected a single Filled event for the buy order, got %+v", history)
	}
}

func TestRunDeliversTradesToOnTradeHook(t *testing.T) {
	engine := matching.New(nil)
	svc := New(engine, nil, nil, nil, nil)

	seen := make(chan *types.Trade, 1)
	svc.OnTrade(func(trade *types.Trade) {
		seen <- trade
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	if _, err := svc.SubmitOrder(limitOrder(types.Sell, "100", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SubmitOrder(limitOrder(types.Buy, "100", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case trade := <-seen:
		if !trade.Price.Equal(d("100")) || !trade.Quantity.Equal(d("1")) {
			t.Fatalf("unexpected trade: %+v", trade)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for trade through OnTrade hook")
	}

	engine.Close()
	<-done
}

func TestCancelOrderRecordsCanceledEvent(t *testing.T) {
	engine := matching.New(nil)
	defer engine.Close()

	events := eventstore.NewInMemoryStore()
	svc := New(engine, events, nil, nil, nil)

	order := limitOrder(types.Buy, "100", "1")
	if _, err := svc.SubmitOrder(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.CancelOrder("BTCUSD", order.ID) {
		t.Fatalf("expected cancel to succeed")
	}

	history := events.History(order.ID)
	if len(history) != 2 || history[1].ExecType != eventstore.ExecCanceled {
		t.Fatalf("expected a trailing Canceled event, got %+v", history)
	}
}
