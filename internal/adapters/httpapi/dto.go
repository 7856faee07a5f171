package httpapi

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/nullable"
	"github.com/shopspring/decimal"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

var validate = validator.New()

// CashCardRequest is the create/update body. id and owner are accepted for wire
// compatibility and then discarded.
type CashCardRequest struct {
	ID     nullable.Nullable[json.RawMessage] `json:"id,omitempty"`
	Amount *decimal.Decimal                   `json:"amount" validate:"required"`
	Owner  nullable.Nullable[json.RawMessage] `json:"owner,omitempty"`
}

// ignoredFields names the discarded fields the client actually sent.
func (b CashCardRequest) ignoredFields() []string {
	var out []string
	if b.ID.IsSpecified() {
		out = append(out, "id")
	}
	if b.Owner.IsSpecified() {
		out = append(out, "owner")
	}
	return out
}

type CashCardResponse struct {
	ID     int64       `json:"id"`
	Amount json.Number `json:"amount"`
	Owner  string      `json:"owner"`
}

func cashCardFromDomain(c domain.CashCard) CashCardResponse {
	return CashCardResponse{
		ID:     int64(c.ID),
		Amount: json.Number(c.Amount.String()),
		Owner:  string(c.Owner),
	}
}
