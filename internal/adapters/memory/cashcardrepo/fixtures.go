package cashcardrepo

import (
	"github.com/shopspring/decimal"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

// ReferenceCards is the seed data used by local runs and handler tests.
// sarah1 owns 99-101, kumar2 owns 102, hank-owns-no-cards owns nothing.
func ReferenceCards() []domain.CashCard {
	return []domain.CashCard{
		{ID: 99, Amount: decimal.RequireFromString("123.45"), Owner: "sarah1"},
		{ID: 100, Amount: decimal.RequireFromString("1.00"), Owner: "sarah1"},
		{ID: 101, Amount: decimal.RequireFromString("150.00"), Owner: "sarah1"},
		{ID: 102, Amount: decimal.RequireFromString("200.00"), Owner: "kumar2"},
	}
}

// NewReferenceRepo returns a repo seeded with ReferenceCards.
func NewReferenceRepo() *Repo {
	return NewRepoWithRecords(ReferenceCards()...)
}
