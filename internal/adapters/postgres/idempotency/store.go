package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformclock "github.com/Overland-East-Bay/cashcard-api/internal/platform/clock"
	clockport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/idempotency"
)

var errNilPool = errors.New("nil postgres pool")

// Store keeps idempotency records in the idempotency_keys table. Expired rows are
// invisible to Get and removed by PurgeExpired.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	clk  clockport.Clock
}

// NewStore returns a store whose records never expire.
func NewStore(pool *pgxpool.Pool) *Store {
	return NewStoreWithTTL(pool, 0)
}

func NewStoreWithTTL(pool *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{pool: pool, ttl: ttl, clk: platformclock.NewSystemClock()}
}

// WithClock replaces the clock used for expiry.
func (s *Store) WithClock(clk clockport.Clock) *Store {
	s.clk = clk
	return s
}

// cutoff is the oldest created_at still visible. The zero time disables expiry.
func (s *Store) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.clk.Now().Add(-s.ttl)
}

const selectRecord = `
	SELECT status_code, content_type, location, body, created_at
	FROM idempotency_keys
	WHERE idempotency_key = @key
	  AND subject = @subject
	  AND method = @method
	  AND route = @route
	  AND body_hash = @body_hash
	  AND created_at > @cutoff`

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errNilPool
	}
	args := fingerprintArgs(fp)
	args["cutoff"] = s.cutoff()

	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, selectRecord, args).
		Scan(&rec.StatusCode, &rec.ContentType, &rec.Location, &rec.Body, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idempotency.Record{}, false, nil
	case err != nil:
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

const upsertRecord = `
	INSERT INTO idempotency_keys (
		idempotency_key, subject, method, route, body_hash,
		status_code, content_type, location, body, created_at
	) VALUES (
		@key, @subject, @method, @route, @body_hash,
		@status_code, @content_type, @location, @body, @created_at
	)
	ON CONFLICT (idempotency_key, subject, method, route, body_hash)
	DO UPDATE SET
		status_code = EXCLUDED.status_code,
		content_type = EXCLUDED.content_type,
		location = EXCLUDED.location,
		body = EXCLUDED.body,
		created_at = EXCLUDED.created_at`

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errNilPool
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now()
	}
	_, err := s.pool.Exec(ctx, upsertRecord, recordArgs(fp, rec))
	return err
}

// insertIfAbsent only overwrites a conflicting row that has already expired, so a live
// claim always wins. No row comes back when the live row was kept.
const insertIfAbsent = `
	INSERT INTO idempotency_keys (
		idempotency_key, subject, method, route, body_hash,
		status_code, content_type, location, body, created_at
	) VALUES (
		@key, @subject, @method, @route, @body_hash,
		@status_code, @content_type, @location, @body, @created_at
	)
	ON CONFLICT (idempotency_key, subject, method, route, body_hash)
	DO UPDATE SET
		status_code = EXCLUDED.status_code,
		content_type = EXCLUDED.content_type,
		location = EXCLUDED.location,
		body = EXCLUDED.body,
		created_at = EXCLUDED.created_at
	WHERE idempotency_keys.created_at <= @cutoff
	RETURNING created_at`

// putIfAbsentAttempts bounds retries when the live row is purged between insert and read.
const putIfAbsentAttempts = 3

func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errNilPool
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now()
	}
	args := recordArgs(fp, rec)
	for range putIfAbsentAttempts {
		args["cutoff"] = s.cutoff()
		var createdAt time.Time
		err := s.pool.QueryRow(ctx, insertIfAbsent, args).Scan(&createdAt)
		if err == nil {
			return idempotency.Record{}, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, err
		}
		cur, found, err := s.Get(ctx, fp)
		if err != nil {
			return idempotency.Record{}, false, err
		}
		if found {
			return cur, false, nil
		}
	}
	return idempotency.Record{}, false, errors.New("idempotency record changed concurrently")
}

func (s *Store) Delete(ctx context.Context, fp idempotency.Fingerprint) error {
	if s.pool == nil {
		return errNilPool
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE idempotency_key = @key
		  AND subject = @subject
		  AND method = @method
		  AND route = @route
		  AND body_hash = @body_hash`, fingerprintArgs(fp))
	return err
}

// PurgeExpired deletes rows past the TTL and reports how many went. It is a no-op
// without a TTL.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errNilPool
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at <= $1`, s.cutoff())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func recordArgs(fp idempotency.Fingerprint, rec idempotency.Record) pgx.NamedArgs {
	args := fingerprintArgs(fp)
	args["status_code"] = rec.StatusCode
	args["content_type"] = rec.ContentType
	args["location"] = rec.Location
	args["body"] = rec.Body
	args["created_at"] = rec.CreatedAt.UTC()
	return args
}

func fingerprintArgs(fp idempotency.Fingerprint) pgx.NamedArgs {
	return pgx.NamedArgs{
		"key":       string(fp.Key),
		"subject":   string(fp.Subject),
		"method":    fp.Method,
		"route":     fp.Route,
		"body_hash": fp.BodyHash,
	}
}
