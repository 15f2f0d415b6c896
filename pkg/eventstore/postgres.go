package eventstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quantumflow/engine/pkg/logging"
)

// eventRecord is the gorm model backing the order_events table. It stays
// private to this file: callers only ever see Event.
type eventRecord struct {
	EventID     string `gorm:"primaryKey"`
	OrderID     string `gorm:"index"`
	ClOrdID     string `gorm:"index"`
	OrigClOrdID string
	Symbol      string
	ExecType    string
	Price       decimal.Decimal `gorm:"type:numeric"`
	Quantity    decimal.Decimal `gorm:"type:numeric"`
	Timestamp   time.Time
}

func (eventRecord) TableName() string { return "order_events" }

func toRecord(ev *Event) *eventRecord {
	return &eventRecord{
		EventID:     ev.EventID,
		OrderID:     ev.OrderID,
		ClOrdID:     ev.ClOrdID,
		OrigClOrdID: ev.OrigClOrdID,
		Symbol:      ev.Symbol,
		ExecType:    string(ev.ExecType),
		Price:       ev.Price,
		Quantity:    ev.Quantity,
		Timestamp:   ev.Timestamp,
	}
}

func fromRecord(r *eventRecord) *Event {
	return &Event{
		EventID:     r.EventID,
		OrderID:     r.OrderID,
		ClOrdID:     r.ClOrdID,
		OrigClOrdID: r.OrigClOrdID,
		Symbol:      r.Symbol,
		ExecType:    ExecType(r.ExecType),
		Price:       r.Price,
		Quantity:    r.Quantity,
		Timestamp:   r.Timestamp,
	}
}

// PostgresStore persists events to a gorm-backed Postgres table while
// keeping the ClOrdID chain in memory, mirroring how a FIX session needs
// that chain resolved on every inbound message, not just at audit time.
// AddEvent hands the record to a background writer over a 1024-entry
// buffered channel and returns; it waits for the writer only when that
// buffer is full.
type PostgresStore struct {
	*InMemoryStore

	db  *gorm.DB
	log *logging.Logger

	writes chan *eventRecord
	done   chan struct{}
}

// NewPostgresStore starts the background writer goroutine immediately;
// Close must be called to drain it on shutdown.
func NewPostgresStore(db *gorm.DB, log *logging.Logger) *PostgresStore {
	if log == nil {
		log = logging.NewNop()
	}
	s := &PostgresStore{
		InMemoryStore: NewInMemoryStore(),
		db:            db,
		log:           log,
		writes:        make(chan *eventRecord, 1024),
		done:          make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// AddEvent tracks the ClOrdID chain in memory synchronously — callers
// that immediately need GetLatestClOrdID/ReconstructChain must see the
// update without waiting on the database — and queues the row for the
// background writer.
func (s *PostgresStore) AddEvent(ev *Event) {
	s.InMemoryStore.AddEvent(ev)
	select {
	case s.writes <- toRecord(ev):
	case <-s.done:
	}
}

func (s *PostgresStore) writeLoop() {
	for {
		select {
		case rec := <-s.writes:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := s.db.WithContext(ctx).Create(rec).Error
			cancel()
			if err != nil {
				s.log.Error(context.Background(), "eventstore: write failed",
					zap.String("event_id", rec.EventID), zap.Error(err))
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the writer goroutine. Events already queued but not yet
// flushed are dropped — this store favors not blocking the matching path
// over guaranteeing delivery of the last few events on an ungraceful exit.
func (s *PostgresStore) Close() {
	close(s.done)
}

// LoadHistory reads an order's event history back from Postgres, bypassing
// the in-memory side, which holds only events added since this store was
// created.
func (s *PostgresStore) LoadHistory(ctx context.Context, orderID string) ([]*Event, error) {
	var records []*eventRecord
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	events := make([]*Event, len(records))
	for i, r := range records {
		events[i] = fromRecord(r)
	}
	return events, nil
}
