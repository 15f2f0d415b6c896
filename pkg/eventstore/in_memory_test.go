package eventstore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newEvent(orderID, clOrdID, origClOrdID string, execType ExecType) *Event {
	return &Event{
		EventID:     NewEventID(orderID, execType, 1),
		OrderID:     orderID,
		ClOrdID:     clOrdID,
		OrigClOrdID: origClOrdID,
		Symbol:      "BTCUSD",
		ExecType:    execType,
		Price:       decimal.NewFromInt(100),
		Quantity:    decimal.NewFromInt(1),
		Timestamp:   time.Now(),
	}
}

func TestAddEventAppendsToHistory(t *testing.T) {
	s := NewInMemoryStore()
	s.AddEvent(newEvent("order-1", "clord-1", "", ExecNew))
	s.AddEvent(newEvent("order-1", "clord-1", "", ExecFilled))

	history := s.History("order-1")
	if len(history) != 2 {
		t.Fatalf("expected 2 events, got %d", len(history))
	}
	if history[0].ExecType != ExecNew || history[1].ExecType != ExecFilled {
		t.Fatalf("expected history in insertion order, got %v", history)
	}
}

func TestHistoryForUnknownOrderIsEmpty(t *testing.T) {
	s := NewInMemoryStore()
	if history := s.History("nope"); len(history) != 0 {
		t.Fatalf("expected empty history, got %v", history)
	}
}

func TestTrackClOrdChainRecordsLatestAndOrigin(t *testing.T) {
	s := NewInMemoryStore()
	s.AddEvent(newEvent("order-1", "clord-1", "", ExecNew))

	if got := s.GetLatestClOrdID("order-1"); got != "clord-1" {
		t.Fatalf("expected latest ClOrdID clord-1, got %q", got)
	}
	if got := s.GetOrigClOrdID("clord-1"); got != "" {
		t.Fatalf("expected no predecessor for the chain's origin, got %q", got)
	}
	if got := s.GetOrderID("clord-1"); got != "order-1" {
		t.Fatalf("expected order-1, got %q", got)
	}
}

func TestTrackClOrdChainFollowsReplacements(t *testing.T) {
	s := NewInMemoryStore()
	s.AddEvent(newEvent("order-1", "clord-1", "", ExecNew))
	s.AddEvent(newEvent("order-1", "clord-2", "clord-1", ExecReplaced))
	s.AddEvent(newEvent("order-1", "clord-3", "clord-2", ExecReplaced))

	if got := s.GetLatestClOrdID("order-1"); got != "clord-3" {
		t.Fatalf("expected latest ClOrdID clord-3, got %q", got)
	}

	chain := s.ReconstructChain("clord-3")
	want := []string{"clord-3", "clord-2", "clord-1"}
	if len(chain) != len(want) {
		t.Fatalf("expected chain %v, got %v", want, chain)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("expected chain %v, got %v", want, chain)
		}
	}
}

func TestReconstructChainOfUnknownIDReturnsItself(t *testing.T) {
	s := NewInMemoryStore()
	chain := s.ReconstructChain("ghost")
	if len(chain) != 1 || chain[0] != "ghost" {
		t.Fatalf("expected chain of just the queried ID, got %v", chain)
	}
}
