package domain

import (
	"sort"
	"strings"
)

type route struct {
	prefix string
	gate   Gate
}

// RouteTable maps path prefixes to gates. The longest matching prefix wins;
// a prefix matches whole path segments only.
type RouteTable struct {
	routes []route
}

// NewRouteTable creates an empty table.
func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

// DefaultRouteTable guards the member and admin areas.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable().
		Guard("/admin", AdminOnly).
		Guard("/api/v1/admin", AdminOnly).
		Guard("/dashboard", Protected).
		Guard("/checkin", Protected).
		Guard("/checkout", Protected).
		Guard("/api/v1/checkout", Protected).
		Guard("/api/v1/me", Protected)
}

// Guard puts every path under prefix behind gate.
func (t *RouteTable) Guard(prefix string, gate Gate) *RouteTable {
	prefix = "/" + strings.Trim(prefix, "/")
	t.routes = append(t.routes, route{prefix: prefix, gate: gate})
	sort.SliceStable(t.routes, func(i, j int) bool {
		return len(t.routes[i].prefix) > len(t.routes[j].prefix)
	})
	return t
}

// Resolve returns the gate for path, or false if the path is public.
func (t *RouteTable) Resolve(path string) (Gate, bool) {
	for _, r := range t.routes {
		if r.prefix == "/" || path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			return r.gate, true
		}
	}
	return Gate{}, false
}

// Evaluate decides path against the table. Public paths always render.
func (t *RouteTable) Evaluate(lookup Lookup, path string) Decision {
	gate, ok := t.Resolve(path)
	if !ok {
		d := Decision{Outcome: OutcomeRender, Path: path, Gate: "public"}
		if lookup.Identity != nil {
			id := *lookup.Identity
			d.Identity = &id
		}
		return d
	}
	return Decide(lookup, gate, path)
}
