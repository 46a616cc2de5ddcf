package engine

import "errors"

var (
	// ErrInvalidQuantity is returned when a submit request's quantity is
	// not strictly positive.
	ErrInvalidQuantity = errors.New("engine: quantity must be positive")
	// ErrMissingPrice is returned when a limit/stop_limit request omits
	// the required limit price.
	ErrMissingPrice = errors.New("engine: price is required for this order type")
	// ErrMissingStopPrice is returned when a stop/stop_limit request
	// omits the required stop price.
	ErrMissingStopPrice = errors.New("engine: stop_price is required for this order type")
	// ErrMissingTakeProfitPrice is returned when a take_profit request
	// omits the required take-profit price.
	ErrMissingTakeProfitPrice = errors.New("engine: take_profit_price is required for this order type")
	// ErrUnknownOrderType is returned for an order type outside the
	// known tagged-variant set.
	ErrUnknownOrderType = errors.New("engine: unknown order type")
	// ErrOrderNotFound is returned by Cancel when order_id resolves to
	// neither a resting book order nor a pending trigger.
	ErrOrderNotFound = errors.New("engine: order not found")
)
