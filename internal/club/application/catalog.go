// Package application implements the club's catalog, check-in, and
// checkout use cases.
package application

import (
	"github.com/felixgeelhaar/thermae/internal/club/domain"
)

// Catalog serves the purchasable plans.
type Catalog struct {
	plans []domain.Plan
	byID  map[string]domain.Plan
}

// NewCatalog creates a catalog over plans. A nil slice uses the defaults.
func NewCatalog(plans []domain.Plan) *Catalog {
	if plans == nil {
		plans = domain.DefaultPlans()
	}
	c := &Catalog{plans: plans, byID: make(map[string]domain.Plan, len(plans))}
	for _, p := range plans {
		c.byID[p.ID] = p
	}
	return c
}

// ListPlans returns all plans in catalog order.
func (c *Catalog) ListPlans() []domain.Plan {
	out := make([]domain.Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// GetPlan returns a plan by id.
func (c *Catalog) GetPlan(id string) (domain.Plan, error) {
	p, ok := c.byID[id]
	if !ok {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	return p, nil
}
