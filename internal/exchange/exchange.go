package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"token-sniper/internal/core"
)

// Exchange is the trading surface the sniper engine runs against. Live runs
// use the MEXC REST client; tests use scripted fakes.
type Exchange interface {
	Name() string
	Rules(ctx context.Context, symbol string) (core.Rules, error)
	TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, order core.Order) (core.Order, error)
	QueryOrder(ctx context.Context, symbol, orderID string) (core.Order, error)
}
