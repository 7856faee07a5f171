package cashcardrepo

import (
	"context"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

// Repository provides access to persisted cash cards.
//
// Every read except GetByID is scoped by an explicit owner. GetByID, Update, and DeleteByID
// are keyed by primary key only; callers must verify ownership first.
type Repository interface {
	// Create assigns a fresh id, persists the card, and returns the stored record.
	// Any ID set on the input is ignored.
	Create(ctx context.Context, c domain.CashCard) (domain.CashCard, error)

	GetByID(ctx context.Context, id domain.CashCardID) (domain.CashCard, error)
	GetByIDAndOwner(ctx context.Context, id domain.CashCardID, owner domain.PrincipalID) (domain.CashCard, error)
	ExistsByIDAndOwner(ctx context.Context, id domain.CashCardID, owner domain.PrincipalID) (bool, error)

	// ListByOwner returns one page of the owner's cards ordered by p.Orders().
	ListByOwner(ctx context.Context, owner domain.PrincipalID, p Page) ([]domain.CashCard, error)

	// Update replaces the card with the same ID. It never creates; ErrNotFound is returned
	// when the id does not exist.
	Update(ctx context.Context, c domain.CashCard) error

	// DeleteByID removes the card unconditionally. Deleting a missing id is a no-op.
	DeleteByID(ctx context.Context, id domain.CashCardID) error
}
