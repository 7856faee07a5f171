package identity

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

var validate = validator.New()

// Entry provisions one principal. PasswordHash is a bcrypt hash.
type Entry struct {
	Username     string        `yaml:"username" validate:"required,max=128"`
	PasswordHash string        `yaml:"password_hash" validate:"required"`
	Roles        []domain.Role `yaml:"roles" validate:"required,min=1,dive,oneof=CARD-OWNER NON-OWNER"`
}

// File is the on-disk registry layout.
type File struct {
	Principals []Entry `yaml:"principals" validate:"required,min=1,dive"`
}

type account struct {
	hash  []byte
	roles []domain.Role
}

// Registry maps usernames to credentials and roles. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	accounts map[string]account
	maxCost  int
}

func NewRegistry(entries ...Entry) (*Registry, error) {
	if err := validate.Struct(File{Principals: entries}); err != nil {
		return nil, fmt.Errorf("invalid principal registry: %w", err)
	}
	r := &Registry{accounts: make(map[string]account, len(entries)), maxCost: bcrypt.MinCost}
	for _, e := range entries {
		if _, dup := r.accounts[e.Username]; dup {
			return nil, fmt.Errorf("duplicate principal %q", e.Username)
		}
		cost, err := bcrypt.Cost([]byte(e.PasswordHash))
		if err != nil {
			return nil, fmt.Errorf("principal %q: password_hash is not a bcrypt hash: %w", e.Username, err)
		}
		r.maxCost = max(r.maxCost, cost)
		r.accounts[e.Username] = account{
			hash:  []byte(e.PasswordHash),
			roles: slices.Clone(e.Roles),
		}
	}
	return r, nil
}

// ParseRegistry decodes a YAML registry document.
func ParseRegistry(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode principal registry: %w", err)
	}
	return NewRegistry(f.Principals...)
}

func LoadRegistryFile(path string) (*Registry, error) {
	if path == "" {
		return nil, errors.New("empty principal registry path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data)
}

func (r *Registry) Len() int { return len(r.accounts) }

func (r *Registry) lookup(username string) (account, bool) {
	a, ok := r.accounts[username]
	return a, ok
}

// DevEntries returns the well-known local principals. Hashes are generated at the
// minimum bcrypt cost, so these must never back a production deployment.
func DevEntries() ([]Entry, error) {
	creds := []struct {
		user, pass string
		role       domain.Role
	}{
		{"sarah1", "abc123", domain.RoleCardOwner},
		{"hank-owns-no-cards", "def456", domain.RoleNonOwner},
		{"kumar2", "xyz789", domain.RoleCardOwner},
	}
	out := make([]Entry, 0, len(creds))
	for _, c := range creds {
		h, err := bcrypt.GenerateFromPassword([]byte(c.pass), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Username: c.user, PasswordHash: string(h), Roles: []domain.Role{c.role}})
	}
	return out, nil
}

func NewDevRegistry() (*Registry, error) {
	entries, err := DevEntries()
	if err != nil {
		return nil, err
	}
	return NewRegistry(entries...)
}
