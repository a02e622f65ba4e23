package mexc

import (
	"github.com/shopspring/decimal"

	"token-sniper/internal/core"
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	Status        string `json:"status"`
}

type orderQueryResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Time          int64  `json:"time"`
	UpdateTime    int64  `json:"updateTime"`
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type exchangeInfoResponse struct {
	Symbols []symbolInfoResponse `json:"symbols"`
}

type symbolFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty"`
	StepSize    string `json:"stepSize"`
	MinNotional string `json:"minNotional"`
	TickSize    string `json:"tickSize"`
}

type symbolInfoResponse struct {
	Symbol  string         `json:"symbol"`
	Status  string         `json:"status"`
	Filters []symbolFilter `json:"filters"`
}

func parseRules(src symbolInfoResponse) core.Rules {
	rules := core.Rules{
		MinQty:      decimal.Zero,
		MinNotional: decimal.Zero,
		PriceTick:   decimal.Zero,
		QtyStep:     decimal.Zero,
	}
	for _, f := range src.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			if v, err := decimal.NewFromString(f.MinQty); err == nil {
				rules.MinQty = v
			}
			if v, err := decimal.NewFromString(f.StepSize); err == nil {
				rules.QtyStep = v
			}
		case "PRICE_FILTER":
			if v, err := decimal.NewFromString(f.TickSize); err == nil {
				rules.PriceTick = v
			}
		case "MIN_NOTIONAL", "NOTIONAL":
			if v, err := decimal.NewFromString(f.MinNotional); err == nil {
				// Keep the stricter minimum when both filter names appear.
				if v.Cmp(rules.MinNotional) > 0 {
					rules.MinNotional = v
				}
			}
		}
	}
	return rules
}
