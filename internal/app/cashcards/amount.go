package cashcards

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are bounded so stored values stay small to render, sort and persist.
const (
	MaxAmountScale         = 4
	MaxAmountIntegerDigits = 15
)

var amountLimit = decimal.New(1, MaxAmountIntegerDigits)

// checkAmount rejects missing amounts and amounts outside the monetary range. The exponent
// is checked before any arithmetic so extreme exponents never get rescaled.
func checkAmount(a *decimal.Decimal) *Error {
	if a == nil {
		return validationError("invalid amount", map[string]any{"amount": "required"})
	}
	exp := a.Exponent()
	if exp < -MaxAmountScale {
		return validationError("invalid amount", map[string]any{
			"amount": fmt.Sprintf("at most %d decimal places", MaxAmountScale),
		})
	}
	if exp > MaxAmountIntegerDigits || a.Abs().Cmp(amountLimit) >= 0 {
		return validationError("invalid amount", map[string]any{
			"amount": fmt.Sprintf("at most %d integer digits", MaxAmountIntegerDigits),
		})
	}
	return nil
}
