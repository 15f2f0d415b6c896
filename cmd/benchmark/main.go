package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantumflow/engine/pkg/logging"
	"github.com/quantumflow/engine/pkg/matching"
	"github.com/quantumflow/engine/pkg/types"
)

const (
	numOrders = 1_000_000
	minPrice  = 100.0
	maxPrice  = 200.0
	minQty    = 1
	maxQty    = 100
)

func randomOrder(id int) *types.Order {
	side := types.Buy
	if rand.Intn(2) == 0 {
		side = types.Sell
	}
	price := minPrice + rand.Float64()*(maxPrice-minPrice)
	qty := int64(rand.Intn(maxQty-minQty+1) + minQty)

	order := types.NewOrder("ABC", side, types.Limit,
		decimal.NewFromFloat(price).Round(2),
		decimal.NewFromInt(qty))
	order.ID = fmt.Sprintf("ORD-%06d", id)
	return order
}

func main() {
	engine := matching.New(logging.NewNop())

	totalMatched := 0
	totalQty := decimal.Zero
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for trade := range engine.Trades() {
			totalMatched++
			totalQty = totalQty.Add(trade.Quantity)
			if totalMatched <= 5 {
				log.Printf("match: BUY[%s] <=> SELL[%s] @ %s qty %s\n",
					trade.BuyOrderID, trade.SellOrderID, trade.Price, trade.Quantity)
			}
		}
	}()

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		if _, err := engine.SubmitOrder(randomOrder(i + 1)); err != nil {
			log.Fatalf("submit order %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)
	engine.Close()
	<-drained

	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", numOrders)
	fmt.Printf("Total Matches    : %d\n", totalMatched)
	fmt.Printf("Total Matched Qty: %s\n", totalQty)
	fmt.Printf("Time Taken       : %s\n", elapsed)
}
