package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	errs "github.com/thematters/settlement-ledger/internal/domain/error"
)

// Maximum decimal places accepted per currency. Fiat uses 2, tokens keep the
// on-chain precision they settle with.
var currencyPrecision = map[Currency]int32{
	CurrencyHKD:  2,
	CurrencyLIKE: 9,
	CurrencyUSDT: 6,
}

// ParseAmount validates and parses a client-supplied amount string for the
// given currency. The result is strictly positive and within the currency's
// precision.
func ParseAmount(raw string, currency Currency) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive, got %s", errs.ErrInvalidAmount, raw)
	}

	places, ok := currencyPrecision[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", errs.ErrInvalidCurrency, currency)
	}
	if amount.Exponent() < -places {
		return decimal.Zero, fmt.Errorf("%w: maximum %d decimal places for %s", errs.ErrInvalidAmount, places, currency)
	}

	return amount, nil
}

// FormatAmount renders an amount with the currency's full precision,
// for API responses and remarks.
func FormatAmount(amount decimal.Decimal, currency Currency) string {
	places, ok := currencyPrecision[currency]
	if !ok {
		return amount.String()
	}
	return amount.StringFixed(places)
}
