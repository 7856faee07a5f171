package domain

import "github.com/shopspring/decimal"

// CashCard is the domain representation of a monetary balance owned by one principal.
type CashCard struct {
	ID     CashCardID
	Amount decimal.Decimal
	Owner  PrincipalID
}
