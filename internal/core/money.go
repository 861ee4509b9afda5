// Package core holds the ledger domain: transactions, money parsing, clock
// handling and the daily summary projection.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is prefixed to every formatted amount unless the
// caller configures another one.
const DefaultCurrencySymbol = "NGN "

// ParseAmount converts user input into a decimal amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted and a
// leading sign is allowed. Anything that is not a finite decimal number is
// rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("1050.00") -> 1050, nil
//	ParseAmount("12,5")    -> 12.5, nil
//	ParseAmount("-3")      -> -3, nil
//	ParseAmount("abc")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") > 0 {
		if strings.Contains(s, ".") {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.ContainsAny(s, "eE") {
		// exponent notation is legal for the decimal parser but never typed at a till
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseCharge is ParseAmount restricted to non-negative values.
func ParseCharge(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, ErrInvalidCharge
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidCharge
	}
	return d, nil
}

// FormatMoney renders an amount with the currency symbol and two decimals,
// e.g. "NGN 1050.00" or "-NGN 3.50".
func FormatMoney(d decimal.Decimal, symbol string) string {
	if d.IsNegative() {
		return "-" + symbol + d.Neg().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}
