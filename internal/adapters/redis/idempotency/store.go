package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/cashcard-api/internal/ports/out/idempotency"
)

const keyPrefix = "cashcards:idem:"

var errNilClient = errors.New("nil redis client")

// Store is a Redis implementation of idempotency.Store. Records are JSON values
// that expire after the configured TTL (0 keeps them forever).
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewStore(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

type storedRecord struct {
	StatusCode  int       `json:"statusCode"`
	ContentType string    `json:"contentType,omitempty"`
	Location    string    `json:"location,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.client == nil {
		return idempotency.Record{}, false, errNilClient
	}
	data, err := s.client.Get(ctx, redisKey(fp)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	var sr storedRecord
	if err := json.Unmarshal(data, &sr); err != nil {
		return idempotency.Record{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return idempotency.Record{
		StatusCode:  sr.StatusCode,
		ContentType: sr.ContentType,
		Location:    sr.Location,
		Body:        sr.Body,
		CreatedAt:   sr.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.client == nil {
		return errNilClient
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(fp), data, s.ttl).Err()
}

func (s *Store) PutIfAbsent(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	if s.client == nil {
		return idempotency.Record{}, false, errNilClient
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	// The held key can expire between SetNX and Get; retry a few times.
	for range 3 {
		ok, err := s.client.SetNX(ctx, redisKey(fp), data, s.ttl).Result()
		if err != nil {
			return idempotency.Record{}, false, err
		}
		if ok {
			return idempotency.Record{}, true, nil
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
	if s.client == nil {
		return errNilClient
	}
	return s.client.Del(ctx, redisKey(fp)).Err()
}

func encodeRecord(rec idempotency.Record) ([]byte, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return json.Marshal(storedRecord{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Location:    rec.Location,
		Body:        rec.Body,
		CreatedAt:   createdAt.UTC(),
	})
}

// redisKey hashes the fingerprint so user-controlled parts cannot collide through separators.
func redisKey(fp idempotency.Fingerprint) string {
	h := sha256.New()
	for _, part := range []string{string(fp.Key), string(fp.Subject), fp.Method, fp.Route, fp.BodyHash} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
