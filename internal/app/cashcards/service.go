package cashcards

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
)

// Service enforces ownership on every cash card operation. The caller is always passed
// explicitly and is the only source of a card's owner.
type Service struct {
	cards  cashcardrepo.Repository
	limits PageLimits
	log    *slog.Logger
}

type Options struct {
	Limits PageLimits
	Logger *slog.Logger
}

func NewService(cards cashcardrepo.Repository) *Service {
	return NewServiceWithOptions(cards, Options{})
}

func NewServiceWithOptions(cards cashcardrepo.Repository, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cards:  cards,
		limits: opts.Limits.normalized(),
		log:    logger,
	}
}

func (s *Service) Create(ctx context.Context, caller domain.Principal, in CreateInput) (domain.CashCard, error) {
	if err := checkAmount(in.Amount); err != nil {
		return domain.CashCard{}, err
	}
	s.logIgnored(ctx, "create", caller, in.Ignored)

	created, err := s.cards.Create(ctx, domain.CashCard{
		Amount: *in.Amount,
		Owner:  caller.ID,
	})
	if err != nil {
		return domain.CashCard{}, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, caller domain.Principal, id domain.CashCardID) (domain.CashCard, error) {
	c, err := s.cards.GetByIDAndOwner(ctx, id, caller.ID)
	if err != nil {
		if errors.Is(err, cashcardrepo.ErrNotFound) {
			return domain.CashCard{}, notFound()
		}
		return domain.CashCard{}, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, caller domain.Principal, in ListInput) ([]domain.CashCard, error) {
	p, err := NormalizePage(in, s.limits)
	if err != nil {
		return nil, err
	}
	cards, err := s.cards.ListByOwner(ctx, caller.ID, p)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []domain.CashCard{}
	}
	return cards, nil
}

func (s *Service) Update(ctx context.Context, caller domain.Principal, id domain.CashCardID, in UpdateInput) error {
	if err := checkAmount(in.Amount); err != nil {
		return err
	}
	if _, err := s.cards.GetByIDAndOwner(ctx, id, caller.ID); err != nil {
		if errors.Is(err, cashcardrepo.ErrNotFound) {
			return notFound()
		}
		return err
	}
	s.logIgnored(ctx, "update", caller, in.Ignored)

	err := s.cards.Update(ctx, domain.CashCard{
		ID:     id,
		Amount: *in.Amount,
		Owner:  caller.ID,
	})
	if errors.Is(err, cashcardrepo.ErrNotFound) {
		// Deleted between the ownership check and the write.
		return notFound()
	}
	return err
}

func (s *Service) Delete(ctx context.Context, caller domain.Principal, id domain.CashCardID) error {
	ok, err := s.cards.ExistsByIDAndOwner(ctx, id, caller.ID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound()
	}
	return s.cards.DeleteByID(ctx, id)
}

func (s *Service) logIgnored(ctx context.Context, op string, caller domain.Principal, fields []string) {
	if len(fields) == 0 {
		return
	}
	s.log.DebugContext(ctx, "ignoring client-supplied fields",
		slog.String("op", op),
		slog.String("principal", string(caller.ID)),
		slog.Any("fields", fields),
	)
}
