package exchange

import "errors"

var (
	// ErrSendRejected is returned when a venue answers a new order with a failure.
	ErrSendRejected = errors.New("send rejected by venue")
	// ErrUnsupportedSymbol is returned by venue code limited to a fixed symbol.
	ErrUnsupportedSymbol = errors.New("symbol not supported")
	// ErrInvalidCashMarginType means an order was routed to a strategy of another trade mode.
	ErrInvalidCashMarginType = errors.New("invalid cash margin type")
	ErrUnsupportedSide       = errors.New("unsupported order side")
	ErrUnsupportedOrderType  = errors.New("unsupported order type")
	// ErrOrderNotFound is returned when a venue knows nothing about an order.
	ErrOrderNotFound = errors.New("order not found")
)
