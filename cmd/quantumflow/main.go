// Command quantumflow is a thin CLI shell over the matching core: it is
// not itself part of the specified system, only a convenient way to
// drive it from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/config"
	"github.com/quantumflow/engine/pkg/backtest"
	"github.com/quantumflow/engine/pkg/bus"
	"github.com/quantumflow/engine/pkg/cache"
	"github.com/quantumflow/engine/pkg/eventstore"
	"github.com/quantumflow/engine/pkg/feed"
	postgres_wrapper "github.com/quantumflow/engine/pkg/infra/postgres"
	"github.com/quantumflow/engine/pkg/logging"
	"github.com/quantumflow/engine/pkg/marketdata"
	"github.com/quantumflow/engine/pkg/matching"
	"github.com/quantumflow/engine/pkg/risk"
	"github.com/quantumflow/engine/pkg/service"
	"github.com/quantumflow/engine/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "demo":
		err = runDemo(os.Args[2:])
	case "match":
		err = runMatch(os.Args[2:])
	case "stream":
		err = runStream(os.Args[2:])
	case "backtest":
		err = runBacktest(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Println("error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: quantumflow {demo|match|stream|backtest} [flags]")
}

// runDemo submits a small scripted order sequence against a fresh engine
// and prints every resulting trade, a quick way to see the matcher work
// without wiring up any external input.
func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	symbol := fs.String("symbol", "BTCUSD", "symbol to trade")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.NewLogger(logging.INFO)
	engine := matching.New(logger)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for trade := range engine.Trades() {
			fmt.Printf("trade %s %s @ %s x %s\n", trade.ID, *symbol, trade.Price, trade.Quantity)
		}
	}()

	seed := []struct {
		side  types.Side
		price string
		qty   string
	}{
		{types.Sell, "100.50", "5"},
		{types.Sell, "100.75", "3"},
		{types.Buy, "100.60", "2"},
		{types.Buy, "100.50", "6"},
	}
	for _, s := range seed {
		order := types.NewOrder(*symbol, s.side, types.Limit, dec(s.price), dec(s.qty))
		if _, err := engine.SubmitOrder(order); err != nil {
			return err
		}
	}

	engine.Close()
	<-drained
	return nil
}

// runMatch submits a file of orders (one per line: side,price,qty) and
// prints the resulting trades and book depth. With -config, every trade
// is additionally routed through the audit log, the snapshot cache, and
// the trade bus, the way a deployed service would; without it, orders
// run against a bare in-memory engine.
func runMatch(args []string) error {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	symbol := fs.String("symbol", "BTCUSD", "symbol to trade")
	file := fs.String("file", "", "path to an order file (side,price,qty per line)")
	configPath := fs.String("config", "", "path to a YAML config enabling the audit/cache/bus sinks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("match: -file is required")
	}

	orders, err := loadOrderFile(*file, *symbol)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.INFO)
	engine := matching.New(logger)

	svc, closeSinks, err := newService(*configPath, engine, logger)
	if err != nil {
		return err
	}
	defer closeSinks()
	svc.OnTrade(func(trade *types.Trade) {
		fmt.Printf("trade %s @ %s x %s\n", trade.ID, trade.Price, trade.Quantity)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		svc.Run(ctx)
	}()

	for _, order := range orders {
		if _, err := svc.SubmitOrder(order); err != nil {
			return err
		}
	}

	engine.Close()
	<-drained

	snap := engine.GetBook(*symbol)
	fmt.Printf("resting bid levels: %d, resting ask levels: %d\n", len(snap.Bids), len(snap.Asks))
	return nil
}

// newService builds a service.Service around engine. With an empty
// configPath it returns a bare service backed only by an in-memory
// audit log; given a config file, it dials the configured Redis cache,
// Kafka bus, and Postgres audit sink and wires all three in.
func newService(configPath string, engine *matching.Engine, logger *logging.Logger) (*service.Service, func(), error) {
	noop := func() {}
	if configPath == "" {
		return service.New(engine, nil, nil, nil, logger), noop, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, noop, fmt.Errorf("match: load config: %w", err)
	}

	var events eventstore.Store = eventstore.NewInMemoryStore()
	var closers []func()
	if cfg.AuditDB != nil {
		db, err := postgres_wrapper.InitPostgres(cfg.AuditDB)
		if err != nil {
			return nil, noop, fmt.Errorf("match: init audit db: %w", err)
		}
		pg := eventstore.NewPostgresStore(db, logger)
		events = pg
		closers = append(closers, pg.Close)
	}

	snapshots, err := cache.NewSnapshotCache(cfg.Redis)
	if err != nil {
		return nil, noop, fmt.Errorf("match: init snapshot cache: %w", err)
	}

	publisher := bus.NewTradePublisher(cfg.Kafka)
	closers = append(closers, func() { _ = publisher.Close(context.Background()) })

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return service.New(engine, events, snapshots, publisher, logger), closeAll, nil
}

// runStream connects to a live venue feed and prints messages of the
// requested type as they arrive, until interrupted.
func runStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	symbol := fs.String("symbol", "BTCUSD", "symbol to subscribe to")
	url := fs.String("url", "ws://localhost:8080/stream", "venue websocket URL")
	streamType := fs.String("stream-type", "ticker", "ticker|orderbook")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.NewLogger(logging.INFO)
	wsFeed := feed.NewWSFeed(*url, logger)
	defer wsFeed.Close()

	switch *streamType {
	case "ticker":
		tickers, err := wsFeed.Tickers(*symbol)
		if err != nil {
			return err
		}
		for t := range tickers {
			fmt.Printf("%s bid=%s ask=%s last=%s\n", t.Symbol, t.BestBid, t.BestAsk, t.LastPrice)
		}
	case "orderbook":
		updates, err := wsFeed.BookUpdates(*symbol)
		if err != nil {
			return err
		}
		for u := range updates {
			fmt.Printf("%s bids=%d asks=%d\n", u.Symbol, len(u.Bids), len(u.Asks))
		}
	default:
		return fmt.Errorf("stream: unknown -stream-type %q", *streamType)
	}
	return nil
}

// runBacktest replays a CSV bar file through a strategy that submits one
// market buy on the first bar, useful as a smoke test of the backtest
// engine's wiring. The backtest's book holds only orders the strategy
// itself submits, so that buy finds no resting liquidity and is canceled:
// the run opens no position. A real strategy is supplied by embedding
// pkg/backtest directly.
func runBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	symbol := fs.String("symbol", "BTCUSD", "symbol to backtest")
	file := fs.String("file", "", "path to a CSV bar file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("backtest: -file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	bars, err := marketdata.NewCSVSource(f).LoadBars(*symbol)
	if err != nil {
		return err
	}

	limits := risk.Limits{
		MaxOrderSize:    decimal.NewFromInt(1_000_000),
		MaxPositionSize: decimal.NewFromInt(1_000_000),
		MaxDailyLoss:    decimal.NewFromInt(1_000_000),
		MaxLeverage:     decimal.NewFromInt(100),
	}
	riskManager := risk.NewManager(limits, decimal.NewFromInt(10_000))

	engine := backtest.NewEngine(*symbol, riskManager, true, logging.NewLogger(logging.INFO))
	result, err := engine.Run(bars, buyFirstBarStrategy(), decimal.NewFromInt(10_000))
	if err != nil {
		return err
	}

	fmt.Printf("final capital:  %s\n", result.FinalCapital)
	fmt.Printf("total return:   %s\n", result.TotalReturn)
	fmt.Printf("sharpe ratio:   %s\n", result.SharpeRatio)
	fmt.Printf("max drawdown:   %s\n", result.MaxDrawdown)
	fmt.Printf("total trades:   %d (win %d / loss %d)\n", result.TotalTrades, result.WinningTrades, result.LosingTrades)
	return nil
}

// buyFirstBarStrategy returns a StrategyFunc that submits a single
// one-unit market buy on the first bar it sees and nothing thereafter.
func buyFirstBarStrategy() backtest.StrategyFunc {
	bought := false
	return func(view backtest.View) []*types.Order {
		if bought {
			return nil
		}
		bought = true
		return []*types.Order{
			types.NewOrder(view.Symbol, types.Buy, types.Market, decimal.Zero, decimal.NewFromInt(1)),
		}
	}
}

// loadOrderFile reads one order per line in "side,price,qty" form, e.g.
// "BUY,100.50,5".
func loadOrderFile(path, symbol string) ([]*types.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var orders []*types.Order
	for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("match: line %d: expected side,price,qty, got %q", i+1, line)
		}
		side := types.Side(strings.ToUpper(strings.TrimSpace(fields[0])))
		if side != types.Buy && side != types.Sell {
			return nil, fmt.Errorf("match: line %d: unknown side %q", i+1, fields[0])
		}
		price, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("match: line %d: %w", i+1, err)
		}
		qty, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("match: line %d: %w", i+1, err)
		}
		orders = append(orders, types.NewOrder(symbol, side, types.Limit, price, qty))
	}
	return orders, nil
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}
