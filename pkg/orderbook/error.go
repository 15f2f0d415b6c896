package orderbook

import "errors"

var (
	ErrOrderNotFound    = errors.New("orderbook: order not found")
	ErrZeroQuantity     = errors.New("orderbook: order quantity must be positive")
	ErrNonPositivePrice = errors.New("orderbook: limit price must be positive")
	ErrCrossedBook      = errors.New("orderbook: invariant violation, book crossed at rest")
)
