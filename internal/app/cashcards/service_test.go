package cashcards

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	memcashcardrepo "github.com/Overland-East-Bay/cashcard-api/internal/adapters/memory/cashcardrepo"
	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
)

var (
	sarah = domain.Principal{ID: "sarah1", Roles: []domain.Role{domain.RoleCardOwner}}
	kumar = domain.Principal{ID: "kumar2", Roles: []domain.Role{domain.RoleCardOwner}}
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seededService(t *testing.T) *Service {
	t.Helper()
	repo := memcashcardrepo.NewRepoWithRecords(
		domain.CashCard{ID: 99, Amount: decimal.RequireFromString("123.45"), Owner: "sarah1"},
		domain.CashCard{ID: 100, Amount: decimal.RequireFromString("1.00"), Owner: "sarah1"},
		domain.CashCard{ID: 101, Amount: decimal.RequireFromString("150.00"), Owner: "sarah1"},
		domain.CashCard{ID: 102, Amount: decimal.RequireFromString("200.00"), Owner: "kumar2"},
	)
	return NewService(repo)
}

func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae := (*Error)(nil)
	if !errors.As(err, &ae) || ae.Status != status || ae.Code != code {
		t.Fatalf("err=%v (type=%T), want %s %d", err, err, code, status)
	}
}

func TestService_CreateThenGet(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, sarah, CreateInput{Amount: amount("250.00"), Ignored: []string{"id", "owner"}})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	b, err := svc.Create(ctx, sarah, CreateInput{Amount: amount("250.00")})
	if err != nil {
		t.Fatalf("Create err=%v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %d twice", a.ID)
	}
	if a.Owner != "sarah1" {
		t.Fatalf("owner=%q, want sarah1", a.Owner)
	}

	got, err := svc.Get(ctx, sarah, a.ID)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got.ID != a.ID || !got.Amount.Equal(decimal.RequireFromString("250")) || got.Owner != "sarah1" {
		t.Fatalf("got=%+v created=%+v", got, a)
	}
}

func TestService_Create_MissingAmount(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	_, err := svc.Create(context.Background(), sarah, CreateInput{})
	requireAppError(t, err, 400, "VALIDATION_ERROR")
}

func TestService_AmountBounds(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	ctx := context.Background()

	for _, bad := range []string{"1e-50000000", "1e50000000", "1.00001", "1000000000000000", "-1000000000000000"} {
		_, err := svc.Create(ctx, sarah, CreateInput{Amount: amount(bad)})
		requireAppError(t, err, 400, "VALIDATION_ERROR")

		err = svc.Update(ctx, sarah, 99, UpdateInput{Amount: amount(bad)})
		requireAppError(t, err, 400, "VALIDATION_ERROR")
	}

	for _, ok := range []string{"0.0001", "999999999999999.9999", "-999999999999999", "12e3"} {
		if _, err := svc.Create(ctx, sarah, CreateInput{Amount: amount(ok)}); err != nil {
			t.Fatalf("Create(%s) err=%v", ok, err)
		}
	}

	got, err := svc.Get(ctx, sarah, 99)
	if err != nil || !got.Amount.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("card 99 changed by rejected update: %+v err=%v", got, err)
	}
	cards, err := svc.List(ctx, sarah, ListInput{})
	if err != nil || len(cards) != 7 {
		t.Fatalf("List len=%d err=%v, want 7", len(cards), err)
	}
}

func TestService_ForeignAndMissingAreIndistinguishable(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	ctx := context.Background()

	for _, id := range []domain.CashCardID{102, 1000} {
		_, err := svc.Get(ctx, sarah, id)
		requireAppError(t, err, 404, "NOT_FOUND")

		err = svc.Update(ctx, sarah, id, UpdateInput{Amount: amount("333.33")})
		requireAppError(t, err, 404, "NOT_FOUND")

		err = svc.Delete(ctx, sarah, id)
		requireAppError(t, err, 404, "NOT_FOUND")
	}

	// kumar2's card is untouched.
	got, err := svc.Get(ctx, kumar, 102)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("amount=%s, want 200.00", got.Amount)
	}
}

func TestService_Update_ReplacesAmountKeepsIdentity(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	ctx := context.Background()

	if err := svc.Update(ctx, sarah, 99, UpdateInput{Amount: amount("19.99"), Ignored: []string{"owner"}}); err != nil {
		t.Fatalf("Update err=%v", err)
	}
	got, err := svc.Get(ctx, sarah, 99)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got.ID != 99 || got.Owner != "sarah1" || !got.Amount.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("got=%+v", got)
	}
}

func TestService_Update_MissingAmount(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	err := svc.Update(context.Background(), sarah, 99, UpdateInput{})
	requireAppError(t, err, 400, "VALIDATION_ERROR")
}

func TestService_DeleteThenGet(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, sarah, 99); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
	_, err := svc.Get(ctx, sarah, 99)
	requireAppError(t, err, 404, "NOT_FOUND")

	err = svc.Delete(ctx, sarah, 99)
	requireAppError(t, err, 404, "NOT_FOUND")
}

func TestService_List_DefaultOrderAndPaging(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	ctx := context.Background()

	all, err := svc.List(ctx, sarah, ListInput{})
	if err != nil {
		t.Fatalf("List err=%v", err)
	}
	want := []domain.CashCardID{100, 99, 101}
	if len(all) != len(want) {
		t.Fatalf("len=%d, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("all[%d].ID=%d, want %d", i, all[i].ID, id)
		}
	}

	size := 1
	for i, id := range want {
		page := i
		got, err := svc.List(ctx, sarah, ListInput{Page: &page, Size: &size})
		if err != nil {
			t.Fatalf("List page %d err=%v", i, err)
		}
		if len(got) != 1 || got[0].ID != id {
			t.Fatalf("page %d=%+v, want id %d", i, got, id)
		}
	}

	got, err := svc.List(ctx, sarah, ListInput{Size: &size, Sort: []string{"amount,desc"}})
	if err != nil {
		t.Fatalf("List desc err=%v", err)
	}
	if len(got) != 1 || !got[0].Amount.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("desc page=%+v", got)
	}

	hank := domain.Principal{ID: "hank-owns-no-cards"}
	empty, err := svc.List(ctx, hank, ListInput{})
	if err != nil {
		t.Fatalf("List err=%v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestService_List_InvalidRequest(t *testing.T) {
	t.Parallel()

	svc := seededService(t)
	neg := -1
	_, err := svc.List(context.Background(), sarah, ListInput{Page: &neg})
	requireAppError(t, err, 400, "VALIDATION_ERROR")

	_, err = svc.List(context.Background(), sarah, ListInput{Sort: []string{"owner"}})
	requireAppError(t, err, 400, "VALIDATION_ERROR")
}

type failingRepo struct {
	cashcardrepo.Repository
	err error
}

func (f failingRepo) GetByIDAndOwner(context.Context, domain.CashCardID, domain.PrincipalID) (domain.CashCard, error) {
	return domain.CashCard{}, f.err
}

func TestService_StoreErrorsPassThrough(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := NewService(failingRepo{err: boom})
	_, err := svc.Get(context.Background(), sarah, 99)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want boom", err)
	}
	ae := (*Error)(nil)
	if errors.As(err, &ae) {
		t.Fatalf("store error must not be mapped to an app error: %v", ae)
	}
}
