package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	access "github.com/felixgeelhaar/thermae/internal/access/domain"
	cartapp "github.com/felixgeelhaar/thermae/internal/cart/application"
	clubapp "github.com/felixgeelhaar/thermae/internal/club/application"
	clubpersistence "github.com/felixgeelhaar/thermae/internal/club/infrastructure/persistence"
	identityapp "github.com/felixgeelhaar/thermae/internal/identity/application"
	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
	identitypersistence "github.com/felixgeelhaar/thermae/internal/identity/infrastructure/persistence"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/kv"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/thermae/pkg/observability"

	_ "modernc.org/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type fakeSender struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (f *fakeSender) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeSender) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.bodies)
	code := codePattern.FindString(f.bodies[len(f.bodies)-1])
	require.NotEmpty(t, code)
	return code
}

type recordingHandler struct {
	mu     sync.Mutex
	events []*eventbus.Event
}

func (h *recordingHandler) EventTypes() []string {
	return []string{
		eventbus.RoutingMemberRegistered,
		eventbus.RoutingMemberRoleChanged,
		eventbus.RoutingOrderPlaced,
		eventbus.RoutingCheckInRecorded,
	}
}

func (h *recordingHandler) Handle(ctx context.Context, e *eventbus.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHandler) routingKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.events))
	for _, e := range h.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}

type stubProvider struct{ lookup access.Lookup }

func (p stubProvider) Lookup(ctx context.Context, token string) access.Lookup { return p.lookup }

type fixture struct {
	deps    Dependencies
	handler http.Handler
	members *identityapp.Members
	tokens  *identityapp.TokenIssuer
	store   *kv.MemoryStore
	sender  *fakeSender
	events  *recordingHandler
	phones  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	schema, err := migrations.SQLiteSchema()
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := &recordingHandler{}
	bus := eventbus.NewInProcessBus(logger)
	bus.Register(events)

	memberRepo := identitypersistence.NewSQLiteMemberRepository(db)
	members := identityapp.NewMembers(memberRepo, bus, logger)
	tokens, err := identityapp.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	store := kv.NewMemoryStore()
	sender := &fakeSender{}

	f := &fixture{
		members: members,
		tokens:  tokens,
		store:   store,
		sender:  sender,
		events:  events,
	}
	f.deps = Dependencies{
		Catalog:      clubapp.NewCatalog(nil),
		Carts:        cartapp.NewSessions(store, time.Hour, logger),
		Checkout:     clubapp.NewCheckout(clubpersistence.NewSQLiteOrderRepository(db), bus, logger),
		CheckIns:     clubapp.NewCheckIns(clubpersistence.NewSQLiteCheckInRepository(db), members, bus, logger),
		Members:      members,
		Verification: identityapp.NewVerification(store, sender, members, tokens, logger),
		Identity:     identityapp.NewProvider(tokens, memberRepo, time.Second, logger),
	}
	f.rebuild()
	return f
}

// rebuild recreates the handler after deps have been changed.
func (f *fixture) rebuild() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.handler = NewServer(DefaultServerConfig(), f.deps, logger).Handler()
}

// signIn registers a member with role and returns its session cookie.
func (f *fixture) signIn(t *testing.T, role identity.Role) (*identity.Member, *http.Cookie) {
	t.Helper()
	ctx := context.Background()

	f.phones++
	phone, err := identity.NewPhone(fmt.Sprintf("+3584000000%02d", f.phones))
	require.NoError(t, err)
	member, _, err := f.members.FindOrRegister(ctx, phone, "")
	require.NoError(t, err)
	if role != identity.RoleMember {
		member, err = f.members.SetRole(ctx, member.ID(), role)
		require.NoError(t, err)
	}

	token, _, err := f.tokens.Issue(member.ID())
	require.NoError(t, err)
	return member, &http.Cookie{Name: SessionCookieName, Value: token}
}

func (f *fixture) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	health := observability.NewHealthRegistry()
	health.Register("database", func(ctx context.Context) observability.HealthCheckResult {
		return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: "down"}
	})
	f.deps.Health = health
	f.rebuild()

	rec = f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode(t, rec)["status"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestGate_AnonymousPageRedirectsToAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/admin/members", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth?next=%2Fadmin%2Fmembers", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth?next=%2Fdashboard", rec.Header().Get("Location"))
}

func TestGate_AnonymousAPIGetsUnauthorized(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/auth?next=%2Fapi%2Fv1%2Fme", decode(t, rec)["location"])
}

func TestGate_InvalidTokenIsAnonymous(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/dashboard", nil, &http.Cookie{Name: SessionCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestGate_MemberDeniedOnAdminPaths(t *testing.T) {
	f := newFixture(t)
	_, cookie := f.signIn(t, identity.RoleMember)

	for _, path := range []string{"/admin/members", "/api/v1/admin/members"} {
		rec := f.do(t, http.MethodGet, path, nil, cookie)
		require.Equal(t, http.StatusForbidden, rec.Code, path)
		body := decode(t, rec)
		assert.Equal(t, "denied", body["outcome"])
		assert.Equal(t, "/dashboard", body["home"])
		assert.Empty(t, rec.Header().Get("Location"))
	}
}

func TestGate_StaffAndAdminRenderAdminPage(t *testing.T) {
	f := newFixture(t)

	for _, role := range []identity.Role{identity.RoleStaff, identity.RoleAdmin} {
		member, cookie := f.signIn(t, role)
		rec := f.do(t, http.MethodGet, "/admin/members", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code, role)

		body := decode(t, rec)
		assert.Equal(t, "/admin/members", body["page"])
		assert.Equal(t, member.ID().String(), body["member_id"])
		assert.Equal(t, role.String(), body["role"])
		assert.Equal(t, "render", body["decision"].(map[string]any)["outcome"])
	}
}

func TestGate_ProtectedPageRendersForMember(t *testing.T) {
	f := newFixture(t)
	_, cookie := f.signIn(t, identity.RoleMember)

	rec := f.do(t, http.MethodGet, "/dashboard", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "protected", decode(t, rec)["decision"].(map[string]any)["gate"])
}

func TestGate_PendingLookupIsLoading(t *testing.T) {
	f := newFixture(t)
	f.deps.Identity = stubProvider{lookup: access.Pending()}
	f.rebuild()

	rec := f.do(t, http.MethodGet, "/admin/members", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "loading", decode(t, rec)["outcome"])

	rec = f.do(t, http.MethodGet, "/api/v1/plans", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "public paths do not wait for identity")
}

func TestGate_RoleChangeAppliesOnNextRequest(t *testing.T) {
	f := newFixture(t)
	member, cookie := f.signIn(t, identity.RoleMember)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/members", nil, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	_, err := f.members.SetRole(context.Background(), member.ID(), identity.RoleAdmin)
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/members", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err = f.members.SetRole(context.Background(), member.ID(), identity.RoleMember)
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/members", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
