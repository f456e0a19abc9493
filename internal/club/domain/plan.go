// Package domain models the club's catalog, visits, and orders.
package domain

import (
	"encoding/json"
	"errors"

	cart "github.com/felixgeelhaar/thermae/internal/cart/domain"
)

var ErrPlanNotFound = errors.New("plan not found")

// Plan is a purchasable product: a recurring membership or a punch card.
type Plan struct {
	ID              string        `json:"id"`
	Kind            cart.ItemKind `json:"kind"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	PriceMinorUnits int64         `json:"price_minor_units"`
	// Period is the billing period of a membership ("month", "year").
	Period string `json:"period,omitempty"`
	// Visits is the number of entries on a punch card.
	Visits int      `json:"visits,omitempty"`
	Perks  []string `json:"perks,omitempty"`
}

// CartItem converts the plan to a cart line carrying the full plan record.
func (p Plan) CartItem(quantity int) (cart.Item, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return cart.Item{}, err
	}
	return cart.Item{
		ID:                  p.ID,
		Kind:                p.Kind,
		Name:                p.Name,
		Description:         p.Description,
		UnitPriceMinorUnits: p.PriceMinorUnits,
		Quantity:            quantity,
		Payload:             payload,
	}, nil
}

// DefaultPlans is the club's standing catalog.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:              "plan-basic",
			Kind:            cart.KindMembership,
			Name:            "Basic",
			Description:     "Sauna and pools, weekdays",
			PriceMinorUnits: 6500,
			Period:          "month",
			Perks:           []string{"sauna", "pools"},
		},
		{
			ID:              "plan-premium",
			Kind:            cart.KindMembership,
			Name:            "Premium",
			Description:     "Unlimited access including steam rooms and cold plunge",
			PriceMinorUnits: 9900,
			Period:          "month",
			Perks:           []string{"sauna", "pools", "steam", "cold plunge", "towel service"},
		},
		{
			ID:              "plan-annual",
			Kind:            cart.KindMembership,
			Name:            "Premium Annual",
			Description:     "Premium access billed yearly",
			PriceMinorUnits: 99000,
			Period:          "year",
			Perks:           []string{"sauna", "pools", "steam", "cold plunge", "towel service", "guest passes"},
		},
		{
			ID:              "card-5",
			Kind:            cart.KindPunchCard,
			Name:            "5-visit card",
			Description:     "Five single entries, valid 6 months",
			PriceMinorUnits: 9000,
			Visits:          5,
		},
		{
			ID:              "card-10",
			Kind:            cart.KindPunchCard,
			Name:            "10-visit card",
			Description:     "Ten single entries, valid 12 months",
			PriceMinorUnits: 16000,
			Visits:          10,
		},
	}
}
