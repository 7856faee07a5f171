package contracttest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
	cashcardrepoport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
	idempotencyport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/idempotency"
)

type CleanupFunc = func()

type CashCardRepoFactory func(t *testing.T) (cashcardrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Unique subject so shared backends (postgres, redis) don't see earlier runs.
	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key(uuid.NewString()),
		Subject:  domain.PrincipalID("sub-" + uuid.NewString()),
		Method:   "POST",
		Route:    "/cashcards",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Response record under the same key but a body hash.
	respFP := fp
	respFP.BodyHash = "hash-abc"
	if err := store.Put(ctx, respFP, idempotencyport.Record{
		StatusCode: 201,
		Location:   "/cashcards/42",
		CreatedAt:  rec.CreatedAt,
	}); err != nil {
		t.Fatalf("Put response: %v", err)
	}
	got, ok, err = store.Get(ctx, respFP)
	if err != nil || !ok || got.StatusCode != 201 || got.Location != "/cashcards/42" {
		t.Fatalf("unexpected response record ok=%v err=%v rec=%+v", ok, err, got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Subject scoping.
	other := fp
	other.Subject = domain.PrincipalID("sub-" + uuid.NewString())
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for other subject, got ok=%v err=%v", ok, err)
	}

	// PutIfAbsent keeps the live record and hands it back.
	cur, stored, err := store.PutIfAbsent(ctx, fp, idempotencyport.Record{Body: []byte("hash-zzz"), CreatedAt: rec.CreatedAt})
	if err != nil || stored || string(cur.Body) != "hash-def" {
		t.Fatalf("PutIfAbsent on live record: stored=%v body=%q err=%v", stored, cur.Body, err)
	}

	// Delete releases the key for the next claim.
	if err := store.Delete(ctx, fp); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expected miss after Delete, got ok=%v err=%v", ok, err)
	}
	if err := store.Delete(ctx, fp); err != nil {
		t.Fatalf("Delete of absent record: %v", err)
	}

	// Concurrent claims on a fresh key: exactly one wins, the rest see its record.
	claim := fp
	claim.Key = idempotencyport.Key(uuid.NewString())
	const contenders = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
		errs = make(chan error, contenders)
	)
	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := []byte(fmt.Sprintf("hash-%d", i))
			cur, stored, err := store.PutIfAbsent(ctx, claim, idempotencyport.Record{Body: body, CreatedAt: rec.CreatedAt})
			switch {
			case err != nil:
				errs <- err
			case stored:
				wins.Add(1)
			case len(cur.Body) == 0:
				errs <- fmt.Errorf("lost claim returned empty record")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent PutIfAbsent: %v", err)
	}
	if got := wins.Load(); got != 1 {
		t.Fatalf("concurrent PutIfAbsent winners=%d, want 1", got)
	}
}

func RunCashCardRepo(t *testing.T, newRepo CashCardRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Unique owners so shared backends are isolated per run.
	alice := domain.PrincipalID("alice-" + uuid.NewString())
	bob := domain.PrincipalID("bob-" + uuid.NewString())

	create := func(owner domain.PrincipalID, amount string) domain.CashCard {
		t.Helper()
		c, err := repo.Create(ctx, domain.CashCard{Amount: decimal.RequireFromString(amount), Owner: owner})
		if err != nil {
			t.Fatalf("Create(%s, %s): %v", owner, amount, err)
		}
		if c.ID == 0 || c.Owner != owner || !c.Amount.Equal(decimal.RequireFromString(amount)) {
			t.Fatalf("Create returned %+v", c)
		}
		return c
	}

	a1 := create(alice, "123.45")
	a2 := create(alice, "1.00")
	a3 := create(alice, "150.00")
	b1 := create(bob, "200.00")

	// Global id uniqueness.
	seen := map[domain.CashCardID]bool{}
	for _, c := range []domain.CashCard{a1, a2, a3, b1} {
		if seen[c.ID] {
			t.Fatalf("duplicate id %d", c.ID)
		}
		seen[c.ID] = true
	}

	// Immediate read-back by owner.
	got, err := repo.GetByIDAndOwner(ctx, a1.ID, alice)
	if err != nil {
		t.Fatalf("GetByIDAndOwner: %v", err)
	}
	if got.ID != a1.ID || got.Owner != alice || !got.Amount.Equal(a1.Amount) {
		t.Fatalf("unexpected card: %+v", got)
	}

	// Owner scoping.
	if _, err := repo.GetByIDAndOwner(ctx, b1.ID, alice); err != cashcardrepoport.ErrNotFound {
		t.Fatalf("GetByIDAndOwner(foreign) err=%v, want ErrNotFound", err)
	}
	if ok, err := repo.ExistsByIDAndOwner(ctx, b1.ID, alice); err != nil || ok {
		t.Fatalf("ExistsByIDAndOwner(foreign)=%v err=%v", ok, err)
	}
	if ok, err := repo.ExistsByIDAndOwner(ctx, b1.ID, bob); err != nil || !ok {
		t.Fatalf("ExistsByIDAndOwner(own)=%v err=%v", ok, err)
	}
	if _, err := repo.GetByID(ctx, b1.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	// Paging: page 0 then 1 then 2, size 1, ascending amount; no duplicates, no omissions.
	wantAsc := []domain.CashCardID{a2.ID, a1.ID, a3.ID}
	for i, want := range wantAsc {
		page, err := repo.ListByOwner(ctx, alice, cashcardrepoport.Page{Number: i, Size: 1})
		if err != nil {
			t.Fatalf("ListByOwner page %d: %v", i, err)
		}
		if len(page) != 1 || page[0].ID != want {
			t.Fatalf("page %d = %#v, want id %d", i, page, want)
		}
	}
	if page, err := repo.ListByOwner(ctx, alice, cashcardrepoport.Page{Number: 3, Size: 1}); err != nil || len(page) != 0 {
		t.Fatalf("page past end = %#v err=%v, want empty", page, err)
	}

	// Size larger than owned set returns everything, owner-scoped.
	all, err := repo.ListByOwner(ctx, alice, cashcardrepoport.Page{Number: 0, Size: 100})
	if err != nil {
		t.Fatalf("ListByOwner all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListByOwner all len=%d, want 3", len(all))
	}
	for _, c := range all {
		if c.Owner != alice {
			t.Fatalf("foreign card leaked into list: %+v", c)
		}
	}

	// Descending sort.
	desc, err := repo.ListByOwner(ctx, alice, cashcardrepoport.Page{
		Number: 0,
		Size:   1,
		Sort:   []cashcardrepoport.Order{{Property: cashcardrepoport.PropertyAmount, Direction: cashcardrepoport.Desc}},
	})
	if err != nil {
		t.Fatalf("ListByOwner desc: %v", err)
	}
	if len(desc) != 1 || !desc[0].Amount.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("desc page = %#v", desc)
	}

	// Tie-break by id for equal amounts.
	t1 := create(bob, "5.00")
	t2 := create(bob, "5.00")
	ties, err := repo.ListByOwner(ctx, bob, cashcardrepoport.Page{Number: 0, Size: 10})
	if err != nil {
		t.Fatalf("ListByOwner ties: %v", err)
	}
	if len(ties) != 3 || ties[0].ID != t1.ID || ties[1].ID != t2.ID || ties[2].ID != b1.ID {
		t.Fatalf("unexpected tie ordering: %#v", ties)
	}

	// Full replacement update keeps id.
	upd := domain.CashCard{ID: a1.ID, Amount: decimal.RequireFromString("19.99"), Owner: alice}
	if err := repo.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.GetByIDAndOwner(ctx, a1.ID, alice)
	if err != nil || !got.Amount.Equal(decimal.RequireFromString("19.99")) || got.ID != a1.ID {
		t.Fatalf("after update got=%+v err=%v", got, err)
	}

	// Update never creates.
	missing := domain.CashCardID(a1.ID + 1_000_000_000)
	if err := repo.Update(ctx, domain.CashCard{ID: missing, Amount: decimal.NewFromInt(1), Owner: alice}); err != cashcardrepoport.ErrNotFound {
		t.Fatalf("Update(missing) err=%v, want ErrNotFound", err)
	}

	// Delete.
	if err := repo.DeleteByID(ctx, a1.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := repo.GetByIDAndOwner(ctx, a1.ID, alice); err != cashcardrepoport.ErrNotFound {
		t.Fatalf("after delete err=%v, want ErrNotFound", err)
	}
	if err := repo.DeleteByID(ctx, a1.ID); err != nil {
		t.Fatalf("DeleteByID twice: %v", err)
	}
}
