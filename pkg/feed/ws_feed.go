// Package feed provides boundary connectors: a live websocket market data
// source and a FIX message-conversion layer for an order gateway. Neither
// is part of the matching core — the core only ever sees the shapes in
// pkg/marketdata and pkg/types, never a connector's own wire format.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantumflow/engine/pkg/logging"
	"github.com/quantumflow/engine/pkg/marketdata"
)

// tickerMessage is the wire shape this feed expects from its venue: a
// single JSON object per text frame. Adapting a different venue's wire
// format means rewriting decode, not the rest of the feed.
type tickerMessage struct {
	Symbol    string          `json:"symbol"`
	BestBid   decimal.Decimal `json:"best_bid"`
	BestAsk   decimal.Decimal `json:"best_ask"`
	LastPrice decimal.Decimal `json:"last_price"`
	Timestamp int64           `json:"timestamp"`
}

type bookUpdateMessage struct {
	Symbol    string      `json:"symbol"`
	Bids      [][2]string `json:"bids"`
	Asks      [][2]string `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// WSFeed implements marketdata.Source over a single gorilla/websocket
// connection, fanning decoded messages out to per-symbol subscriber
// channels.
type WSFeed struct {
	url    string
	log    *logging.Logger
	dialer *websocket.Dialer

	mu          sync.Mutex
	conn        *websocket.Conn
	tickerSubs  map[string]chan marketdata.Ticker
	bookSubs    map[string]chan marketdata.BookUpdate
	closed      chan struct{}
}

// NewWSFeed constructs a feed that will dial url on first subscription.
func NewWSFeed(url string, log *logging.Logger) *WSFeed {
	if log == nil {
		log = logging.NewNop()
	}
	return &WSFeed{
		url:        url,
		log:        log,
		dialer:     websocket.DefaultDialer,
		tickerSubs: make(map[string]chan marketdata.Ticker),
		bookSubs:   make(map[string]chan marketdata.BookUpdate),
		closed:     make(chan struct{}),
	}
}

func (f *WSFeed) ensureConn(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return nil
	}
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.url, err)
	}
	f.conn = conn
	go f.readLoop()
	return nil
}

// Tickers subscribes to best-bid/best-ask/last-price updates for symbol.
func (f *WSFeed) Tickers(symbol string) (<-chan marketdata.Ticker, error) {
	if err := f.ensureConn(context.Background()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.tickerSubs[symbol]
	if !ok {
		ch = make(chan marketdata.Ticker, 64)
		f.tickerSubs[symbol] = ch
	}
	return ch, nil
}

// BookUpdates subscribes to full book snapshots for symbol.
func (f *WSFeed) BookUpdates(symbol string) (<-chan marketdata.BookUpdate, error) {
	if err := f.ensureConn(context.Background()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.bookSubs[symbol]
	if !ok {
		ch = make(chan marketdata.BookUpdate, 64)
		f.bookSubs[symbol] = ch
	}
	return ch, nil
}

// Close closes the underlying connection. Subscriber channels returned
// by Tickers and BookUpdates are not closed.
func (f *WSFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closed:
		return nil
	default:
		close(f.closed)
	}
	if f.conn == nil {
		return nil
	}
	return f.conn.Close()
}

func (f *WSFeed) readLoop() {
	for {
		select {
		case <-f.closed:
			return
		default:
		}

		_, payload, err := f.conn.ReadMessage()
		if err != nil {
			f.log.Error(context.Background(), "feed read error", zap.Error(err))
			return
		}
		f.dispatch(payload)
	}
}

func (f *WSFeed) dispatch(payload []byte) {
	var probe struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := json.Unmarshal(payload, &probe); err == nil && (probe.Bids != nil || probe.Asks != nil) {
		var msg bookUpdateMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return
		}
		f.emitBookUpdate(msg)
		return
	}

	var msg tickerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	f.emitTicker(msg)
}

func (f *WSFeed) emitTicker(msg tickerMessage) {
	f.mu.Lock()
	ch, ok := f.tickerSubs[msg.Symbol]
	f.mu.Unlock()
	if !ok {
		return
	}
	t := marketdata.Ticker{
		Symbol:    msg.Symbol,
		BestBid:   msg.BestBid,
		BestAsk:   msg.BestAsk,
		LastPrice: msg.LastPrice,
		Timestamp: time.Unix(msg.Timestamp, 0).UTC(),
	}
	select {
	case ch <- t:
	default: // slow subscriber; drop rather than block the read loop
	}
}

func (f *WSFeed) emitBookUpdate(msg bookUpdateMessage) {
	f.mu.Lock()
	ch, ok := f.bookSubs[msg.Symbol]
	f.mu.Unlock()
	if !ok {
		return
	}
	update := marketdata.BookUpdate{
		Symbol:    msg.Symbol,
		Bids:      decodeLevels(msg.Bids),
		Asks:      decodeLevels(msg.Asks),
		Timestamp: time.Unix(msg.Timestamp, 0).UTC(),
	}
	select {
	case ch <- update:
	default:
	}
}

func decodeLevels(raw [][2]string) []marketdata.PriceLevel {
	levels := make([]marketdata.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		price, err1 := decimal.NewFromString(pair[0])
		qty, err2 := decimal.NewFromString(pair[1])
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, marketdata.PriceLevel{Price: price, Quantity: qty})
	}
	return levels
}
