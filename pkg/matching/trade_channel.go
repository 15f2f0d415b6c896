package matching

import "github.com/quantumflow/engine/pkg/types"

// tradeChannel is an unbounded outbound stream of trades: a small buffered
// intake channel feeds a forwarder goroutine that holds overflow in a
// growing slice, so a slow or absent consumer never blocks the matching
// loop that publishes into it.
type tradeChannel struct {
	in   chan *types.Trade
	out  chan *types.Trade
	done chan struct{}
}

func newTradeChannel() *tradeChannel {
	tc := &tradeChannel{
		in:   make(chan *types.Trade, 256),
		out:  make(chan *types.Trade),
		done: make(chan struct{}),
	}
	go tc.forward()
	return tc
}

func (tc *tradeChannel) forward() {
	var buffer []*types.Trade
	for {
		if len(buffer) == 0 {
			select {
			case t := <-tc.in:
				buffer = append(buffer, t)
			case <-tc.done:
				close(tc.out)
				return
			}
			continue
		}

		select {
		case t := <-tc.in:
			buffer = append(buffer, t)
		case tc.out <- buffer[0]:
			buffer = buffer[1:]
		case <-tc.done:
			close(tc.out)
			return
		}
	}
}

// publish enqueues a trade for delivery. It never blocks on a slow reader.
func (tc *tradeChannel) publish(t *types.Trade) {
	tc.in <- t
}

// Out is the consumer-facing read side.
func (tc *tradeChannel) Out() <-chan *types.Trade {
	return tc.out
}

// Close stops the forwarder goroutine. Any buffered trades not yet
// delivered are dropped.
func (tc *tradeChannel) Close() {
	close(tc.done)
}
