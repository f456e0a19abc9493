// Package domain decides what a request may see. Decide is a pure function
// of the identity lookup and the gate guarding the requested path.
package domain

import (
	"sort"

	"github.com/google/uuid"

	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
)

const (
	// AuthPath is where unauthenticated visitors are sent.
	AuthPath = "/auth"
	// HomePath is the link offered from an access-denied view.
	HomePath = "/dashboard"
)

// LookupState is the progress of the identity lookup.
type LookupState int

const (
	LookupPending LookupState = iota
	LookupResolved
)

// Identity is the authenticated caller.
type Identity struct {
	MemberID uuid.UUID
	Role     identity.Role
}

// Lookup is the tri-state answer from an identity provider: pending,
// resolved without identity, or resolved with one.
type Lookup struct {
	State    LookupState
	Identity *Identity
}

// Pending returns a lookup that has not resolved.
func Pending() Lookup { return Lookup{State: LookupPending} }

// Anonymous returns a resolved lookup with no identity.
func Anonymous() Lookup { return Lookup{State: LookupResolved} }

// Authenticated returns a resolved lookup for id.
func Authenticated(id Identity) Lookup {
	return Lookup{State: LookupResolved, Identity: &id}
}

// RoleSet is a set of roles. The empty set admits any authenticated identity.
type RoleSet map[identity.Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...identity.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Allows reports whether role is admitted.
func (s RoleSet) Allows(role identity.Role) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[role]
	return ok
}

// Roles returns the members of the set, sorted.
func (s RoleSet) Roles() []identity.Role {
	out := make([]identity.Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Gate guards a group of paths.
type Gate struct {
	Name  string
	Roles RoleSet
}

// Protected admits any authenticated identity.
var Protected = Gate{Name: "protected"}

// AdminOnly admits admins and staff.
var AdminOnly = Gate{Name: "admin", Roles: NewRoleSet(identity.RoleAdmin, identity.RoleStaff)}

// Outcome is what the caller should do with the request.
type Outcome string

const (
	OutcomeLoading  Outcome = "loading"
	OutcomeRedirect Outcome = "redirect"
	OutcomeDenied   Outcome = "denied"
	OutcomeRender   Outcome = "render"
)

// Decision is the result of Decide. Location is set for redirects, Home
// for denials, and Identity for renders.
type Decision struct {
	Outcome  Outcome   `json:"outcome"`
	Path     string    `json:"path"`
	Gate     string    `json:"gate"`
	Location string    `json:"location,omitempty"`
	Next     string    `json:"next,omitempty"`
	Home     string    `json:"home,omitempty"`
	Identity *Identity `json:"-"`
}

// Decide resolves a request for path behind gate. Evaluation order is
// pending, then missing identity, then role, then render.
func Decide(lookup Lookup, gate Gate, path string) Decision {
	d := Decision{Path: path, Gate: gate.Name}

	switch {
	case lookup.State == LookupPending:
		d.Outcome = OutcomeLoading
	case lookup.Identity == nil:
		d.Outcome = OutcomeRedirect
		d.Location = AuthPath
		d.Next = path
	case !gate.Roles.Allows(lookup.Identity.Role):
		d.Outcome = OutcomeDenied
		d.Home = HomePath
	default:
		d.Outcome = OutcomeRender
		id := *lookup.Identity
		d.Identity = &id
	}
	return d
}
