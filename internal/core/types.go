package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

// Order status is an open, exchange-defined set. OrderFilled is the only
// value the sniper keys decisions on; anything else means keep waiting.
const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// Order mirrors exchange state; it is never mutated locally after
// submission, only re-read via status queries.
type Order struct {
	ID        string
	ClientID  string
	Symbol    string
	Side      Side
	Type      OrderType
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
}

// Rules holds the tradable-instrument filters fetched once per run from
// exchangeInfo. Zero values mean the exchange declared no such filter.
type Rules struct {
	MinQty      decimal.Decimal
	MinNotional decimal.Decimal
	PriceTick   decimal.Decimal
	QtyStep     decimal.Decimal
}

// Intent is the user-supplied trade request, immutable for the run.
// TakeProfitPct of zero means no take-profit leg.
type Intent struct {
	Symbol        string
	Budget        decimal.Decimal
	Type          OrderType
	LimitPrice    decimal.Decimal
	TakeProfitPct decimal.Decimal
}
