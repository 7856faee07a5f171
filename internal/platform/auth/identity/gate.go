package identity

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/crypto/bcrypt"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Gate authenticates credentials against a Registry and checks roles. It keeps no
// per-request state.
type Gate struct {
	reg *Registry
	// Compared against for unknown usernames so response time does not reveal which exist.
	dummyHash []byte
}

func NewGate(reg *Registry) (*Gate, error) {
	if reg == nil {
		return nil, errors.New("nil principal registry")
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), reg.maxCost)
	if err != nil {
		return nil, err
	}
	return &Gate{reg: reg, dummyHash: dummy}, nil
}

func (g *Gate) Authenticate(ctx context.Context, username, secret string) (domain.Principal, error) {
	_ = ctx
	acct, ok := g.reg.lookup(username)
	if !ok {
		_ = bcrypt.CompareHashAndPassword(g.dummyHash, []byte(secret))
		return domain.Principal{}, ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(secret)); err != nil {
		return domain.Principal{}, ErrUnauthenticated
	}
	return principal(username, acct), nil
}

// AuthenticateSubject resolves a subject already proven by a verified bearer token.
func (g *Gate) AuthenticateSubject(ctx context.Context, subject string) (domain.Principal, error) {
	_ = ctx
	acct, ok := g.reg.lookup(subject)
	if !ok {
		return domain.Principal{}, ErrUnauthenticated
	}
	return principal(subject, acct), nil
}

// Authorize checks role against the registry entry for p, not the roles p carries.
func (g *Gate) Authorize(p domain.Principal, role domain.Role) error {
	acct, ok := g.reg.lookup(string(p.ID))
	if !ok || !slices.Contains(acct.roles, role) {
		return ErrForbidden
	}
	return nil
}

func principal(username string, acct account) domain.Principal {
	return domain.Principal{
		ID:    domain.PrincipalID(username),
		Roles: append([]domain.Role(nil), acct.roles...),
	}
}
