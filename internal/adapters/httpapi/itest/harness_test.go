package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Overland-East-Bay/cashcard-api/internal/adapters/httpapi"
	memcashcardrepo "github.com/Overland-East-Bay/cashcard-api/internal/adapters/memory/cashcardrepo"
	memidempotency "github.com/Overland-East-Bay/cashcard-api/internal/adapters/memory/idempotency"
	pgcashcardrepo "github.com/Overland-East-Bay/cashcard-api/internal/adapters/postgres/cashcardrepo"
	pgidempotency "github.com/Overland-East-Bay/cashcard-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/cashcard-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/cashcard-api/internal/app/cashcards"
	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
	"github.com/Overland-East-Bay/cashcard-api/internal/platform/auth/identity"
	cashcardrepoport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/cashcardrepo"
	idempotencyport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/idempotency"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

// principal is a registered user; usernames are unique per server so a shared postgres
// database never leaks state between runs.
type principal struct {
	user string
	pass string
}

type testServer struct {
	baseURL string
	client  *http.Client

	owner    principal
	other    principal
	nonOwner principal
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	var (
		cardRepo  cashcardrepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		cardRepo = pgcashcardrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		cardRepo = memcashcardrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	suffix := uuid.NewString()
	s := &testServer{
		owner:    principal{user: "owner-" + suffix, pass: "owner-pw"},
		other:    principal{user: "other-" + suffix, pass: "other-pw"},
		nonOwner: principal{user: "viewer-" + suffix, pass: "viewer-pw"},
	}
	reg, err := identity.NewRegistry(
		entry(t, s.owner, domain.RoleCardOwner),
		entry(t, s.other, domain.RoleCardOwner),
		entry(t, s.nonOwner, domain.RoleNonOwner),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	gate, err := identity.NewGate(reg)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	api := httpapi.NewServer(cashcards.NewService(cardRepo), idemStore)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewBasicAuthMiddleware(gate),
		Authorizer:     gate,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s.baseURL = srv.URL
	s.client = srv.Client()
	return s
}

func entry(t *testing.T, p principal, role domain.Role) identity.Entry {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(p.pass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return identity.Entry{Username: p.user, PasswordHash: string(h), Roles: []domain.Role{role}}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, as *principal, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if as != nil {
		req.SetBasicAuth(as.user, as.pass)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
