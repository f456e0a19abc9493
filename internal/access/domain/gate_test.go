package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/thermae/internal/access/domain"
	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
)

func as(role identity.Role) domain.Lookup {
	return domain.Authenticated(domain.Identity{MemberID: uuid.New(), Role: role})
}

func TestDecide_PendingLoadsRegardlessOfGate(t *testing.T) {
	for _, gate := range []domain.Gate{domain.Protected, domain.AdminOnly} {
		d := domain.Decide(domain.Pending(), gate, "/admin/members")
		assert.Equal(t, domain.OutcomeLoading, d.Outcome, gate.Name)
		assert.Equal(t, "/admin/members", d.Path)
		assert.Empty(t, d.Location)
	}

	// A pending lookup that somehow carries an identity still loads.
	lookup := as(identity.RoleAdmin)
	lookup.State = domain.LookupPending
	assert.Equal(t, domain.OutcomeLoading, domain.Decide(lookup, domain.AdminOnly, "/admin").Outcome)
}

func TestDecide_AnonymousRedirectsToAuth(t *testing.T) {
	d := domain.Decide(domain.Anonymous(), domain.AdminOnly, "/admin/members")

	assert.Equal(t, domain.OutcomeRedirect, d.Outcome)
	assert.Equal(t, "/auth", d.Location)
	assert.Equal(t, "/admin/members", d.Next)
}

func TestDecide_MemberDeniedOnAdminPath(t *testing.T) {
	d := domain.Decide(as(identity.RoleMember), domain.AdminOnly, "/admin/members")

	assert.Equal(t, domain.OutcomeDenied, d.Outcome)
	assert.Equal(t, "/dashboard", d.Home)
	assert.Empty(t, d.Location)
	assert.Nil(t, d.Identity)
}

func TestDecide_AdminAndStaffRenderAdminPath(t *testing.T) {
	for _, role := range []identity.Role{identity.RoleAdmin, identity.RoleStaff} {
		lookup := as(role)
		d := domain.Decide(lookup, domain.AdminOnly, "/admin/members")

		assert.Equal(t, domain.OutcomeRender, d.Outcome, role)
		require.NotNil(t, d.Identity)
		assert.Equal(t, lookup.Identity.MemberID, d.Identity.MemberID)
	}
}

func TestDecide_ProtectedAdmitsAnyRole(t *testing.T) {
	for _, role := range identity.AllRoles {
		d := domain.Decide(as(role), domain.Protected, "/dashboard")
		assert.Equal(t, domain.OutcomeRender, d.Outcome, role)
	}
}

func TestDecide_FullMatrix(t *testing.T) {
	lookups := map[string]domain.Lookup{
		"pending":   domain.Pending(),
		"anonymous": domain.Anonymous(),
		"member":    as(identity.RoleMember),
		"staff":     as(identity.RoleStaff),
		"admin":     as(identity.RoleAdmin),
	}
	want := map[string]map[string]domain.Outcome{
		"protected": {
			"pending": domain.OutcomeLoading, "anonymous": domain.OutcomeRedirect,
			"member": domain.OutcomeRender, "staff": domain.OutcomeRender, "admin": domain.OutcomeRender,
		},
		"admin": {
			"pending": domain.OutcomeLoading, "anonymous": domain.OutcomeRedirect,
			"member": domain.OutcomeDenied, "staff": domain.OutcomeRender, "admin": domain.OutcomeRender,
		},
	}

	for _, gate := range []domain.Gate{domain.Protected, domain.AdminOnly} {
		for name, lookup := range lookups {
			got := domain.Decide(lookup, gate, "/x").Outcome
			assert.Equal(t, want[gate.Name][name], got, "%s/%s", gate.Name, name)
		}
	}
}

func TestRoleSet(t *testing.T) {
	empty := domain.NewRoleSet()
	assert.True(t, empty.Allows(identity.RoleMember))

	set := domain.NewRoleSet(identity.RoleStaff, identity.RoleAdmin)
	assert.False(t, set.Allows(identity.RoleMember))
	assert.Equal(t, []identity.Role{identity.RoleAdmin, identity.RoleStaff}, set.Roles())
}

func TestRouteTable_Resolve(t *testing.T) {
	table := domain.DefaultRouteTable()

	tests := []struct {
		path string
		gate string
		ok   bool
	}{
		{"/admin", "admin", true},
		{"/admin/members", "admin", true},
		{"/administrator", "", false},
		{"/api/v1/admin/checkins", "admin", true},
		{"/dashboard", "protected", true},
		{"/api/v1/me/checkin-qr", "protected", true},
		{"/api/v1/checkout", "protected", true},
		{"/api/v1/cart", "", false},
		{"/api/v1/plans", "", false},
		{"/auth", "", false},
		{"/", "", false},
	}
	for _, tt := range tests {
		gate, ok := table.Resolve(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.gate, gate.Name, tt.path)
	}
}

func TestRouteTable_LongestPrefixWins(t *testing.T) {
	table := domain.NewRouteTable().
		Guard("/club", domain.Protected).
		Guard("/club/office", domain.AdminOnly)

	gate, ok := table.Resolve("/club/office/keys")
	require.True(t, ok)
	assert.Equal(t, "admin", gate.Name)

	gate, ok = table.Resolve("/club/lounge")
	require.True(t, ok)
	assert.Equal(t, "protected", gate.Name)
}

func TestRouteTable_Evaluate(t *testing.T) {
	table := domain.DefaultRouteTable()

	assert.Equal(t, domain.OutcomeRender, table.Evaluate(domain.Pending(), "/api/v1/plans").Outcome)
	assert.Equal(t, domain.OutcomeRedirect, table.Evaluate(domain.Anonymous(), "/admin/members").Outcome)
	assert.Equal(t, domain.OutcomeDenied, table.Evaluate(as(identity.RoleMember), "/admin/members").Outcome)
	assert.Equal(t, domain.OutcomeRender, table.Evaluate(as(identity.RoleAdmin), "/admin/members").Outcome)

	public := table.Evaluate(as(identity.RoleMember), "/api/v1/cart")
	assert.Equal(t, "public", public.Gate)
	assert.NotNil(t, public.Identity)
}
