package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStepPrecision(t *testing.T) {
	cases := []struct {
		step string
		want int32
	}{
		{"0.0001", 4},
		{"0.001", 3},
		{"0.01", 2},
		{"0.1", 1},
		{"1", 0},
		{"10", 0},
		{"0.00000001", 8},
	}
	for _, tc := range cases {
		got := StepPrecision(decimal.RequireFromString(tc.step))
		if got != tc.want {
			t.Fatalf("StepPrecision(%s) = %d, want %d", tc.step, got, tc.want)
		}
	}
	if got := StepPrecision(decimal.Zero); got != 0 {
		t.Fatalf("StepPrecision(0) = %d, want 0", got)
	}
}

func TestQuantizeBudgetTruncates(t *testing.T) {
	qty := QuantizeBudget(decimal.RequireFromString("100"), decimal.RequireFromString("3"), 4)
	if !qty.Equal(decimal.RequireFromString("33.3333")) {
		t.Fatalf("QuantizeBudget(100, 3, 4) = %s, want 33.3333", qty)
	}
}

func TestQuantizeBudgetNeverExceedsBudget(t *testing.T) {
	cases := []struct {
		budget    string
		price     string
		precision int32
	}{
		{"100", "3", 4},
		{"50", "0.00013", 0},
		{"10", "7.77", 2},
		{"1", "3333.33", 6},
		{"0.5", "0.0000019", 8},
		{"250", "1.111111", 3},
	}
	for _, tc := range cases {
		budget := decimal.RequireFromString(tc.budget)
		price := decimal.RequireFromString(tc.price)
		qty := QuantizeBudget(budget, price, tc.precision)
		if qty.Mul(price).Cmp(budget) > 0 {
			t.Fatalf("QuantizeBudget(%s, %s, %d) = %s spends %s, over budget",
				tc.budget, tc.price, tc.precision, qty, qty.Mul(price))
		}
		if qty.Exponent() < -tc.precision {
			t.Fatalf("QuantizeBudget(%s, %s, %d) = %s has more than %d fractional digits",
				tc.budget, tc.price, tc.precision, qty, tc.precision)
		}
	}
}

func TestQuantizeBudgetInvalidInputs(t *testing.T) {
	if got := QuantizeBudget(decimal.RequireFromString("100"), decimal.Zero, 4); !got.IsZero() {
		t.Fatalf("QuantizeBudget(100, 0, 4) = %s, want 0", got)
	}
	if got := QuantizeBudget(decimal.Zero, decimal.RequireFromString("3"), 4); !got.IsZero() {
		t.Fatalf("QuantizeBudget(0, 3, 4) = %s, want 0", got)
	}
}

func TestValidateQtyBelowMin(t *testing.T) {
	rules := Rules{MinQty: decimal.RequireFromString("0.01")}
	err := ValidateQty(decimal.RequireFromString("0.009"), decimal.RequireFromString("100"), rules)
	if !errors.Is(err, ErrBudgetTooSmall) {
		t.Fatalf("ValidateQty() error = %v, want %v", err, ErrBudgetTooSmall)
	}
	if err := ValidateQty(decimal.RequireFromString("0.01"), decimal.RequireFromString("100"), rules); err != nil {
		t.Fatalf("ValidateQty() error = %v, want nil", err)
	}
}

func TestValidateQtyBelowMinNotional(t *testing.T) {
	rules := Rules{
		MinQty:      decimal.RequireFromString("0.001"),
		MinNotional: decimal.RequireFromString("5"),
	}
	err := ValidateQty(decimal.RequireFromString("0.1"), decimal.RequireFromString("100"), rules)
	if err != nil {
		t.Fatalf("ValidateQty() error = %v, want nil", err)
	}
	err = ValidateQty(decimal.RequireFromString("0.01"), decimal.RequireFromString("100"), rules)
	if !errors.Is(err, ErrBudgetTooSmall) {
		t.Fatalf("ValidateQty() error = %v, want %v", err, ErrBudgetTooSmall)
	}
}

func TestValidateQtyZero(t *testing.T) {
	err := ValidateQty(decimal.Zero, decimal.RequireFromString("1"), Rules{})
	if !errors.Is(err, ErrBudgetTooSmall) {
		t.Fatalf("ValidateQty(0) error = %v, want %v", err, ErrBudgetTooSmall)
	}
}

func TestTakeProfitPriceFallbackPrecision(t *testing.T) {
	got := TakeProfitPrice(decimal.RequireFromString("10"), decimal.RequireFromString("5"), Rules{})
	if !got.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("TakeProfitPrice(10, 5%%) = %s, want 10.5", got)
	}
}

func TestTakeProfitPriceAlignsToTick(t *testing.T) {
	rules := Rules{PriceTick: decimal.RequireFromString("0.01")}
	got := TakeProfitPrice(decimal.RequireFromString("10"), decimal.RequireFromString("3.33"), rules)
	if !got.Equal(decimal.RequireFromString("10.33")) {
		t.Fatalf("TakeProfitPrice(10, 3.33%%, tick=0.01) = %s, want 10.33", got)
	}
}

func TestRoundDown(t *testing.T) {
	got := RoundDown(decimal.RequireFromString("100.037"), decimal.RequireFromString("0.01"))
	if !got.Equal(decimal.RequireFromString("100.03")) {
		t.Fatalf("RoundDown(100.037, 0.01) = %s, want 100.03", got)
	}
	got = RoundDown(decimal.RequireFromString("7"), decimal.Zero)
	if !got.Equal(decimal.RequireFromString("7")) {
		t.Fatalf("RoundDown(7, 0) = %s, want 7", got)
	}
}
