package idempotency

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

// Key is the client-chosen Idempotency-Key header value.
type Key string

// Fingerprint scopes a stored create to one principal, key and route.
//
// Two records exist per key. The claim (empty BodyHash) holds the body hash first sent with the
// key in Record.Body. The response (BodyHash set) holds the 201 and its Location.
type Fingerprint struct {
	Key      Key
	Subject  domain.PrincipalID
	Method   string
	Route    string
	BodyHash string
}

// Claim returns the claim fingerprint for fp's key.
func (fp Fingerprint) Claim() Fingerprint {
	fp.BodyHash = ""
	return fp
}

type Record struct {
	StatusCode  int
	ContentType string
	Location    string
	Body        []byte
	CreatedAt   time.Time
}

// Expired reports whether r has reached ttl at now. A non-positive ttl never expires.
func (r Record) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(r.CreatedAt) >= ttl
}

// Store persists idempotency records. Put overwrites.
//
// PutIfAbsent stores rec only when no live record exists for fp and reports whether it did.
// Otherwise it returns the record already held. It is atomic with respect to other callers.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	PutIfAbsent(ctx context.Context, fp Fingerprint, rec Record) (existing Record, stored bool, err error)
	Delete(ctx context.Context, fp Fingerprint) error
}
