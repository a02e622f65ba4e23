package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"token-sniper/internal/alert"
	"token-sniper/internal/core"
	"token-sniper/internal/exchange"
)

// ErrWaitDeadlineExceeded reports that a bounded poll loop ran out of time.
// Only returned when a max wait was configured; the default is wait-forever.
var ErrWaitDeadlineExceeded = errors.New("wait deadline exceeded")

const (
	defaultPriceRetryDelay  = 100 * time.Millisecond
	defaultFillPollInterval = time.Second
)

// Sniper drives one trade end to end: resolve instrument rules, poll until
// the symbol has a live price, size the order from the budget, submit the
// buy, poll until it fills, then optionally place a take-profit sell.
type Sniper struct {
	Exchange exchange.Exchange
	Intent   core.Intent

	PriceRetryDelay  time.Duration
	FillPollInterval time.Duration
	MaxPriceWait     time.Duration
	MaxFillWait      time.Duration

	Alerts alert.Alerter
}

// Report is what a completed run observed. TakeProfit is nil when no
// take-profit was requested or its submission failed.
type Report struct {
	Rules      core.Rules
	EntryPrice decimal.Decimal
	Buy        core.Order
	TakeProfit *core.Order
}

func (s *Sniper) Run(ctx context.Context) (Report, error) {
	var report Report
	if err := s.validateIntent(); err != nil {
		return report, err
	}
	symbol := s.Intent.Symbol

	rules, err := s.Exchange.Rules(ctx, symbol)
	if err != nil {
		// Catalog miss and transport failure are equally fatal here: the
		// run cannot size an order without instrument rules.
		return report, err
	}
	report.Rules = rules
	log.Printf("level=INFO event=rules_resolved symbol=%s qty_step=%s min_qty=%s min_notional=%s price_tick=%s",
		symbol, rules.QtyStep, rules.MinQty, rules.MinNotional, rules.PriceTick)

	price, err := s.awaitLivePrice(ctx)
	if err != nil {
		return report, err
	}
	report.EntryPrice = price
	log.Printf("level=INFO event=live_price symbol=%s price=%s", symbol, price)

	precision := core.StepPrecision(rules.QtyStep)
	qty := core.QuantizeBudget(s.Intent.Budget, price, precision)
	if err := core.ValidateQty(qty, price, rules); err != nil {
		return report, fmt.Errorf("%w: qty %s for budget %s at price %s", err, qty, s.Intent.Budget, price)
	}

	buy := core.Order{
		Symbol: symbol,
		Side:   core.Buy,
		Type:   s.Intent.Type,
		Qty:    qty,
	}
	if s.Intent.Type == core.Limit {
		buy.Price = s.Intent.LimitPrice
	}
	log.Printf("level=INFO event=order_preview symbol=%s type=%s qty=%s price=%s",
		symbol, buy.Type, buy.Qty, previewPrice(buy, price))

	placed, err := s.Exchange.PlaceOrder(ctx, buy)
	if err != nil {
		s.alertImportant("buy_submission_failed", map[string]string{
			"type": string(buy.Type),
			"qty":  buy.Qty.String(),
			"err":  err.Error(),
		})
		return report, err
	}
	if placed.ID == "" {
		return report, core.ErrNoOrderID
	}
	report.Buy = placed
	log.Printf("level=INFO event=buy_submitted symbol=%s order_id=%s client_id=%s qty=%s",
		symbol, placed.ID, placed.ClientID, placed.Qty)

	filled, err := s.awaitFill(ctx, placed.ID)
	if err != nil {
		return report, err
	}
	report.Buy = filled
	log.Printf("level=INFO event=buy_filled symbol=%s order_id=%s", symbol, filled.ID)
	s.alertImportant("buy_order_filled", map[string]string{
		"order_id": filled.ID,
		"qty":      filled.Qty.String(),
		"price":    price.String(),
	})

	if s.Intent.TakeProfitPct.Cmp(decimal.Zero) > 0 {
		s.placeTakeProfit(ctx, &report, price, qty, rules)
	}
	return report, nil
}

func (s *Sniper) validateIntent() error {
	if s.Intent.Symbol == "" {
		return errors.New("symbol is required")
	}
	if s.Intent.Budget.Cmp(decimal.Zero) <= 0 {
		return errors.New("budget must be > 0")
	}
	switch s.Intent.Type {
	case core.Market:
	case core.Limit:
		if s.Intent.LimitPrice.Cmp(decimal.Zero) <= 0 {
			return errors.New("limit price is required for LIMIT orders")
		}
	default:
		return fmt.Errorf("order type must be %s or %s", core.Market, core.Limit)
	}
	if s.Intent.TakeProfitPct.Cmp(decimal.Zero) < 0 {
		return errors.New("take-profit percentage must be >= 0")
	}
	return nil
}

// awaitLivePrice polls the ticker until the symbol trades at a positive
// price. A quote that is merely not live yet and a failed fetch are both
// retried; they are logged apart so an operator can tell which is happening.
func (s *Sniper) awaitLivePrice(ctx context.Context) (decimal.Decimal, error) {
	delay := s.PriceRetryDelay
	if delay <= 0 {
		delay = defaultPriceRetryDelay
	}
	start := time.Now()
	for {
		price, err := s.Exchange.TickerPrice(ctx, s.Intent.Symbol)
		if err == nil {
			return price, nil
		}
		if errors.Is(err, core.ErrNoQuoteYet) {
			log.Printf("level=INFO event=price_not_live symbol=%s", s.Intent.Symbol)
		} else {
			log.Printf("level=WARN event=price_fetch_failed symbol=%s err=%q", s.Intent.Symbol, err.Error())
		}
		if s.MaxPriceWait > 0 && time.Since(start) >= s.MaxPriceWait {
			return decimal.Zero, fmt.Errorf("%w: no live price after %s", ErrWaitDeadlineExceeded, s.MaxPriceWait)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
}

// awaitFill polls order status until the exchange reports FILLED. Query
// failures are retried like any other not-yet-filled observation.
func (s *Sniper) awaitFill(ctx context.Context, orderID string) (core.Order, error) {
	interval := s.FillPollInterval
	if interval <= 0 {
		interval = defaultFillPollInterval
	}
	start := time.Now()
	for {
		order, err := s.Exchange.QueryOrder(ctx, s.Intent.Symbol, orderID)
		if err != nil {
			log.Printf("level=WARN event=order_status_failed symbol=%s order_id=%s err=%q",
				s.Intent.Symbol, orderID, err.Error())
		} else if order.Status == core.OrderFilled {
			return order, nil
		} else {
			log.Printf("level=INFO event=waiting_fill symbol=%s order_id=%s status=%s",
				s.Intent.Symbol, orderID, order.Status)
		}
		if s.MaxFillWait > 0 && time.Since(start) >= s.MaxFillWait {
			return core.Order{}, fmt.Errorf("%w: order %s not filled after %s", ErrWaitDeadlineExceeded, orderID, s.MaxFillWait)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return core.Order{}, ctx.Err()
		}
	}
}

// placeTakeProfit submits the sell leg. Its outcome is reported but never
// fails the run; the buy already happened.
func (s *Sniper) placeTakeProfit(ctx context.Context, report *Report, entryPrice, qty decimal.Decimal, rules core.Rules) {
	sellPrice := core.TakeProfitPrice(entryPrice, s.Intent.TakeProfitPct, rules)
	sell := core.Order{
		Symbol: s.Intent.Symbol,
		Side:   core.Sell,
		Type:   core.Limit,
		Price:  sellPrice,
		Qty:    qty,
	}
	placed, err := s.Exchange.PlaceOrder(ctx, sell)
	if err == nil && placed.ID == "" {
		err = core.ErrNoOrderID
	}
	if err != nil {
		log.Printf("level=ERROR event=take_profit_failed symbol=%s price=%s err=%q",
			s.Intent.Symbol, sellPrice, err.Error())
		s.alertImportant("take_profit_failed", map[string]string{
			"price": sellPrice.String(),
			"qty":   qty.String(),
			"err":   err.Error(),
		})
		return
	}
	report.TakeProfit = &placed
	log.Printf("level=INFO event=take_profit_submitted symbol=%s order_id=%s price=%s qty=%s",
		s.Intent.Symbol, placed.ID, sellPrice, qty)
	s.alertImportant("take_profit_submitted", map[string]string{
		"order_id": placed.ID,
		"price":    sellPrice.String(),
		"qty":      qty.String(),
	})
}

func (s *Sniper) alertImportant(event string, fields map[string]string) {
	if s.Alerts == nil {
		return
	}
	s.Alerts.Important(event, fields)
}

func previewPrice(order core.Order, market decimal.Decimal) decimal.Decimal {
	if order.Type == core.Limit {
		return order.Price
	}
	return market
}
