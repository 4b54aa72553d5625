// Package store defines where settled order pairs go once the trader is done
// with them.
package store

import (
	"context"

	"arbcore/internal/order"
)

// ActivePairStore receives settled or deliberately flat pairs for downstream
// reconciliation. Put is append-only and must be safe for concurrent calls
// from independent trades.
type ActivePairStore interface {
	Put(ctx context.Context, pair order.Pair) error
}

// Nop discards every pair. Used when persistence is disabled.
type Nop struct{}

func (Nop) Put(context.Context, order.Pair) error { return nil }
