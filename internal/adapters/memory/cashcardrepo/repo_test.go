package cashcardrepo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
)

func card(id int64, amount string, owner string) domain.CashCard {
	return domain.CashCard{
		ID:     domain.CashCardID(id),
		Amount: decimal.RequireFromString(amount),
		Owner:  domain.PrincipalID(owner),
	}
}

func TestRepo_CreateAssignsIncreasingIDs(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	a, err := r.Create(context.Background(), card(0, "1.00", "sarah1"))
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	b, err := r.Create(context.Background(), card(555, "2.00", "sarah1"))
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if a.ID == 0 || b.ID <= a.ID {
		t.Fatalf("ids a=%d b=%d, want increasing and non-zero", a.ID, b.ID)
	}
	if b.ID == 555 {
		t.Fatalf("Create() kept caller-supplied id")
	}
}

func TestRepo_CreateRejectsMissingOwner(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	if _, err := r.Create(context.Background(), card(0, "1.00", "")); err != cashcardrepo.ErrInvalidRecord {
		t.Fatalf("Create() err=%v, want %v", err, cashcardrepo.ErrInvalidRecord)
	}
}

func TestRepo_SeededRecordsAdvanceSequence(t *testing.T) {
	t.Parallel()

	r := NewRepoWithRecords(card(99, "123.45", "sarah1"), card(102, "200.00", "kumar2"))
	c, err := r.Create(context.Background(), card(0, "5.00", "sarah1"))
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if c.ID != 103 {
		t.Fatalf("Create().ID=%d, want 103", c.ID)
	}
}

func TestRepo_GetByIDAndOwner_ForeignOwnerIsNotFound(t *testing.T) {
	t.Parallel()

	r := NewRepoWithRecords(card(102, "200.00", "kumar2"))
	if _, err := r.GetByIDAndOwner(context.Background(), 102, "sarah1"); err != cashcardrepo.ErrNotFound {
		t.Fatalf("GetByIDAndOwner() err=%v, want %v", err, cashcardrepo.ErrNotFound)
	}
	got, err := r.GetByID(context.Background(), 102)
	if err != nil || got.Owner != "kumar2" {
		t.Fatalf("GetByID()=%+v err=%v", got, err)
	}
}

func TestRepo_ListByOwner_DefaultOrderWithTieBreak(t *testing.T) {
	t.Parallel()

	r := NewRepoWithRecords(
		card(5, "10.00", "sarah1"),
		card(3, "10.00", "sarah1"),
		card(4, "1.00", "sarah1"),
		card(6, "0.50", "kumar2"),
	)
	got, err := r.ListByOwner(context.Background(), "sarah1", cashcardrepo.Page{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("ListByOwner() err=%v", err)
	}
	want := []domain.CashCardID{4, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("ListByOwner() len=%d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("ListByOwner()[%d].ID=%d, want %d", i, got[i].ID, want[i])
		}
	}
}

func TestRepo_ListByOwner_ReturnsCopies(t *testing.T) {
	t.Parallel()

	r := NewRepoWithRecords(card(1, "1.00", "sarah1"))
	got, _ := r.ListByOwner(context.Background(), "sarah1", cashcardrepo.Page{Size: 10})
	got[0].Owner = "mallory"

	again, _ := r.GetByIDAndOwner(context.Background(), 1, "sarah1")
	if again.Owner != "sarah1" {
		t.Fatalf("stored record mutated through list result")
	}
}

func TestRepo_UpdateNeverCreates(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	if err := r.Update(context.Background(), card(42, "1.00", "sarah1")); err != cashcardrepo.ErrNotFound {
		t.Fatalf("Update() err=%v, want %v", err, cashcardrepo.ErrNotFound)
	}
	if _, err := r.GetByID(context.Background(), 42); err != cashcardrepo.ErrNotFound {
		t.Fatalf("Update() created a record")
	}
}

func TestRepo_DeleteMissingIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	if err := r.DeleteByID(context.Background(), 1); err != nil {
		t.Fatalf("DeleteByID() err=%v", err)
	}
}
