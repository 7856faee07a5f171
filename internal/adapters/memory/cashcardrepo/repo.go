package cashcardrepo

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
)

// Repo is an in-memory implementation of cashcardrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID   map[domain.CashCardID]domain.CashCard
	lastID domain.CashCardID
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.CashCardID]domain.CashCard),
	}
}

// NewRepoWithRecords returns a repo pre-populated with records that already carry IDs.
// Subsequent Create calls assign IDs above the highest seeded ID.
func NewRepoWithRecords(records ...domain.CashCard) *Repo {
	r := NewRepo()
	for _, c := range records {
		r.byID[c.ID] = c
		if c.ID > r.lastID {
			r.lastID = c.ID
		}
	}
	return r
}

func (r *Repo) Create(ctx context.Context, c domain.CashCard) (domain.CashCard, error) {
	_ = ctx
	if c.Owner == "" {
		return domain.CashCard{}, cashcardrepo.ErrInvalidRecord
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	c.ID = r.lastID
	r.byID[c.ID] = c
	return c, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.CashCardID) (domain.CashCard, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.CashCard{}, cashcardrepo.ErrNotFound
	}
	return c, nil
}

func (r *Repo) GetByIDAndOwner(ctx context.Context, id domain.CashCardID, owner domain.PrincipalID) (domain.CashCard, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok || c.Owner != owner {
		return domain.CashCard{}, cashcardrepo.ErrNotFound
	}
	return c, nil
}

func (r *Repo) ExistsByIDAndOwner(ctx context.Context, id domain.CashCardID, owner domain.PrincipalID) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return ok && c.Owner == owner, nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.PrincipalID, p cashcardrepo.Page) ([]domain.CashCard, error) {
	_ = ctx
	r.mu.RLock()
	owned := make([]domain.CashCard, 0)
	for _, c := range r.byID {
		if c.Owner == owner {
			owned = append(owned, c)
		}
	}
	r.mu.RUnlock()

	orders := p.Orders()
	slices.SortFunc(owned, func(a, b domain.CashCard) int {
		return compareCards(a, b, orders)
	})

	off := p.Offset()
	if off >= int64(len(owned)) {
		return []domain.CashCard{}, nil
	}
	end := off + int64(p.Size)
	if p.Size <= 0 || end > int64(len(owned)) {
		end = int64(len(owned))
	}
	return owned[off:end], nil
}

func (r *Repo) Update(ctx context.Context, c domain.CashCard) error {
	_ = ctx
	if c.Owner == "" {
		return cashcardrepo.ErrInvalidRecord
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID]; !ok {
		return cashcardrepo.ErrNotFound
	}
	r.byID[c.ID] = c
	return nil
}

func (r *Repo) DeleteByID(ctx context.Context, id domain.CashCardID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func compareCards(a, b domain.CashCard, orders []cashcardrepo.Order) int {
	for _, o := range orders {
		var c int
		switch o.Property {
		case cashcardrepo.PropertyAmount:
			c = a.Amount.Cmp(b.Amount)
		case cashcardrepo.PropertyID:
			c = cmp.Compare(a.ID, b.ID)
		}
		if o.Direction == cashcardrepo.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
