package idempotency

import (
	"context"
	"sync"
	"time"

	platformclock "github.com/Overland-East-Bay/cashcard-api/internal/platform/clock"
	clockport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
//
// Records older than the TTL are treated as absent, dropped on read and swept by
// PurgeExpired. A zero TTL keeps records forever.
type Store struct {
	mu  sync.Mutex
	m   map[idempotency.Fingerprint]idempotency.Record
	ttl time.Duration
	clk clockport.Clock
}

func NewStore() *Store {
	return NewStoreWithTTL(0, nil)
}

func NewStoreWithTTL(ttl time.Duration, clk clockport.Clock) *Store {
	if clk == nil {
		clk = platformclock.NewSystemClock()
	}
	return &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		ttl: ttl,
		clk: clk,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if rec.Expired(s.now(), s.ttl) {
		delete(s.m, fp)
		return idempotency.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = cloneRecord(rec)
	return nil
}

func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	_ = ctx
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[fp]; ok && !cur.Expired(now, s.ttl) {
		return cloneRecord(cur), false, nil
	}
	s.m[fp] = cloneRecord(rec)
	return idempotency.Record{}, true, nil
}

func (s *Store) Delete(ctx context.Context, fp idempotency.Fingerprint) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, fp)
	return nil
}

// PurgeExpired drops every record past the TTL and reports how many went.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	_ = ctx
	if s.ttl <= 0 {
		return 0, nil
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for fp, rec := range s.m {
		if rec.Expired(now, s.ttl) {
			delete(s.m, fp)
			n++
		}
	}
	return n, nil
}

func (s *Store) now() time.Time {
	return s.clk.Now()
}

func cloneRecord(rec idempotency.Record) idempotency.Record {
	out := rec
	out.Body = append([]byte(nil), rec.Body...)
	return out
}
