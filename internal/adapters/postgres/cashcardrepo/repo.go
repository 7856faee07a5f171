package cashcardrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	postgres "github.com/Overland-East-Bay/cashcard-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
)

// Repo is a Postgres implementation of cashcardrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var orderColumns = map[cashcardrepo.Property]string{
	cashcardrepo.PropertyID:     "id",
	cashcardrepo.PropertyAmount: "amount",
}

func (r *Repo) Create(ctx context.Context, c domain.CashCard) (domain.CashCard, error) {
	if r.pool == nil {
		return domain.CashCard{}, errors.New("nil postgres pool")
	}
	if c.Owner == "" {
		return domain.CashCard{}, cashcardrepo.ErrInvalidRecord
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO cash_card (amount, owner)
		VALUES ($1::numeric, $2)
		RETURNING id, amount::text, owner
	`, c.Amount.String(), string(c.Owner))
	out, err := scanCard(row)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.CheckViolationCode {
			return domain.CashCard{}, cashcardrepo.ErrInvalidRecord
		}
		return domain.CashCard{}, err
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.CashCardID) (domain.CashCard, error) {
	if r.pool == nil {
		return domain.CashCard{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, amount::text, owner
		FROM cash_card
		WHERE id = $1
	`, int64(id))
	return scanOne(row)
}

func (r *Repo) GetByIDAndOwner(ctx context.Context, id domain.CashCardID, owner domain.PrincipalID) (domain.CashCard, error) {
	if r.pool == nil {
		return domain.CashCard{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, amount::text, owner
		FROM cash_card
		WHERE id = $1 AND owner = $2
	`, int64(id), string(owner))
	return scanOne(row)
}

func (r *Repo) ExistsByIDAndOwner(ctx context.Context, id domain.CashCardID, owner domain.PrincipalID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM cash_card WHERE id = $1 AND owner = $2)
	`, int64(id), string(owner)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.PrincipalID, p cashcardrepo.Page) ([]domain.CashCard, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	if p.Size <= 0 {
		return []domain.CashCard{}, nil
	}
	orderBy, err := orderClause(p.Orders())
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, amount::text, owner
		FROM cash_card
		WHERE owner = $1
		ORDER BY `+orderBy+`
		LIMIT $2 OFFSET $3
	`, string(owner), int64(p.Size), p.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.CashCard, 0, p.Size)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, c domain.CashCard) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	if c.Owner == "" {
		return cashcardrepo.ErrInvalidRecord
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE cash_card
		SET amount = $2::numeric,
		    owner = $3
		WHERE id = $1
	`, int64(c.ID), c.Amount.String(), string(c.Owner))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return cashcardrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteByID(ctx context.Context, id domain.CashCardID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM cash_card WHERE id = $1`, int64(id))
	return err
}

// orderClause renders orders as SQL. Column names come from a fixed allow-list only.
func orderClause(orders []cashcardrepo.Order) (string, error) {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		col, ok := orderColumns[o.Property]
		if !ok {
			return "", fmt.Errorf("unsupported sort property %q", o.Property)
		}
		dir := "ASC"
		if o.Direction == cashcardrepo.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

func scanOne(row pgx.Row) (domain.CashCard, error) {
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CashCard{}, cashcardrepo.ErrNotFound
		}
		return domain.CashCard{}, err
	}
	return c, nil
}

func scanCard(row pgx.Row) (domain.CashCard, error) {
	var (
		id     int64
		amount string
		owner  string
	)
	if err := row.Scan(&id, &amount, &owner); err != nil {
		return domain.CashCard{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.CashCard{}, fmt.Errorf("decode amount %q: %w", amount, err)
	}
	return domain.CashCard{ID: domain.CashCardID(id), Amount: d, Owner: domain.PrincipalID(owner)}, nil
}
