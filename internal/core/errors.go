package core

import "errors"

var (
	// ErrSymbolNotFound indicates the symbol is absent from the exchange
	// instrument catalog.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrNoQuoteYet indicates the symbol has no tradable price yet; the
	// caller is expected to retry.
	ErrNoQuoteYet = errors.New("no quote available yet")
	// ErrBudgetTooSmall indicates the quantized quantity falls below the
	// instrument minimums. Terminal, not retryable.
	ErrBudgetTooSmall = errors.New("budget below instrument minimum")
	// ErrNoOrderID indicates the exchange accepted the request at transport
	// level but returned no order id.
	ErrNoOrderID = errors.New("order submission returned no order id")
	// ErrInsufficientBalance indicates the exchange rejected the action due to insufficient funds.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDuplicateOrder indicates the client order id has already been accepted before.
	ErrDuplicateOrder = errors.New("duplicate order")
	// ErrOrderNotFound indicates the order does not exist on exchange.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderRejected indicates the order was rejected by exchange.
	ErrOrderRejected = errors.New("order rejected")
)
