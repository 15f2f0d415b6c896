// Package bus publishes matched trades onto Kafka for downstream
// consumers — settlement, reporting, a second engine instance building a
// read replica of the tape — none of which the matching core should know
// about directly.
package bus

import (
	"context"
	"fmt"
	"time"

	kafkawrapper "github.com/quantumflow/engine/pkg/kafka_wrapper"
	"github.com/quantumflow/engine/pkg/types"
)

// Config is the YAML-facing shape config.Load populates for the trade
// bus's Kafka connection.
type Config struct {
	Brokers      []string `yaml:"brokers"`
	BatchSize    int      `yaml:"batch_size"`
	BatchTimeout int      `yaml:"batch_timeout_ms"`
}

// TradePublisher drains an engine's trade channel and republishes each
// trade as a JSON message on a per-symbol topic, so a consumer interested
// in one symbol's tape can subscribe without filtering every symbol's
// traffic out of a shared topic.
type TradePublisher struct {
	producer *kafkawrapper.Producer
}

func NewTradePublisher(cfg Config) *TradePublisher {
	return &TradePublisher{
		producer: kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers:      cfg.Brokers,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: time.Duration(cfg.BatchTimeout) * time.Millisecond,
		}),
	}
}

func topicFor(symbol string) string {
	return fmt.Sprintf("trades.%s", symbol)
}

// Publish sends one trade on its symbol's topic, keyed by trade ID so
// ordering within a single fill event is never in question.
func (p *TradePublisher) Publish(ctx context.Context, trade *types.Trade) error {
	headers := map[string]string{"symbol": trade.Symbol}
	if err := p.producer.PublishJSON(ctx, topicFor(trade.Symbol), trade.ID, trade, headers); err != nil {
		return fmt.Errorf("bus: publish trade %s: %w", trade.ID, err)
	}
	return nil
}

// Run drains trades until the channel closes or ctx is canceled,
// publishing each one. A publish failure is logged by the caller via the
// returned error channel's lone terminal value; the loop does not retry
// per-message, relying on kafka-go's own write-side buffering instead.
func (p *TradePublisher) Run(ctx context.Context, trades <-chan *types.Trade) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for {
			select {
			case <-ctx.Done():
				return
			case trade, ok := <-trades:
				if !ok {
					return
				}
				if err := p.Publish(ctx, trade); err != nil {
					errc <- err
					return
				}
			}
		}
	}()
	return errc
}

// Close releases the underlying Kafka writer.
func (p *TradePublisher) Close(ctx context.Context) error {
	return p.producer.Close(ctx)
}
