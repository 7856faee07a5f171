package cashcards

import "github.com/shopspring/decimal"

type CreateInput struct {
	Amount *decimal.Decimal
	// Ignored lists client-supplied fields the server discarded (id, owner).
	Ignored []string
}

type UpdateInput struct {
	Amount  *decimal.Decimal
	Ignored []string
}

// ListInput is the raw page request; nil means "use the default".
type ListInput struct {
	Page *int
	Size *int
	Sort []string
}
