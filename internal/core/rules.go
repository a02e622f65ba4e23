package core

import "github.com/shopspring/decimal"

// Price precision used for the take-profit leg when the instrument declares
// no price tick.
const takeProfitFallbackPrecision = 8

// StepPrecision derives the number of fractional digits a lot step size
// allows, e.g. "0.001" -> 3, "1" -> 0. The step is exchange-supplied as a
// decimal string, so the exponent is exact.
func StepPrecision(step decimal.Decimal) int32 {
	if step.Cmp(decimal.Zero) <= 0 {
		return 0
	}
	if exp := step.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// QuantizeBudget converts a quote-currency budget and a live price into an
// order quantity truncated to precision fractional digits. Truncation keeps
// quantity*price at or below the budget; rounding to nearest could overspend.
func QuantizeBudget(budget, price decimal.Decimal, precision int32) decimal.Decimal {
	if price.Cmp(decimal.Zero) <= 0 || budget.Cmp(decimal.Zero) <= 0 {
		return decimal.Zero
	}
	qty, _ := budget.QuoRem(price, precision)
	return qty
}

// ValidateQty checks a quantized quantity against the instrument minimums.
// The notional check uses the reference price the quantity was computed at.
func ValidateQty(qty, price decimal.Decimal, rules Rules) error {
	if qty.Cmp(decimal.Zero) <= 0 {
		return ErrBudgetTooSmall
	}
	if rules.MinQty.Cmp(decimal.Zero) > 0 && qty.Cmp(rules.MinQty) < 0 {
		return ErrBudgetTooSmall
	}
	if rules.MinNotional.Cmp(decimal.Zero) > 0 && qty.Mul(price).Cmp(rules.MinNotional) < 0 {
		return ErrBudgetTooSmall
	}
	return nil
}

// TakeProfitPrice prices the sell leg at buyPrice * (1 + pct/100), aligned
// down to the instrument price tick when one is known. Instruments without a
// tick fall back to 8 fractional digits.
func TakeProfitPrice(buyPrice, pct decimal.Decimal, rules Rules) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100)))
	sell := buyPrice.Mul(factor)
	if rules.PriceTick.Cmp(decimal.Zero) > 0 {
		return RoundDown(sell, rules.PriceTick)
	}
	return sell.Round(takeProfitFallbackPrecision)
}

func RoundDown(value, step decimal.Decimal) decimal.Decimal {
	if step.Cmp(decimal.Zero) <= 0 {
		return value
	}
	return value.Div(step).Floor().Mul(step)
}
