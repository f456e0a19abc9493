// Package domain holds the cart model: the items a visitor intends to
// purchase and the rules for combining them.
package domain

import (
	"encoding/json"
	"errors"
)

// ItemKind distinguishes recurring memberships from punch-card packages.
type ItemKind string

const (
	KindMembership ItemKind = "membership"
	KindPunchCard  ItemKind = "punch_card"
)

// IsValid reports whether k is a known kind.
func (k ItemKind) IsValid() bool {
	return k == KindMembership || k == KindPunchCard
}

var (
	ErrEmptyItemID   = errors.New("cart item id is required")
	ErrInvalidKind   = errors.New("cart item kind must be membership or punch_card")
	ErrNegativePrice = errors.New("cart item price cannot be negative")
)

// Item is a single cart line. Payload carries the full plan record and is
// never inspected.
type Item struct {
	ID                  string          `json:"id"`
	Kind                ItemKind        `json:"kind"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	UnitPriceMinorUnits int64           `json:"unit_price_minor_units"`
	Quantity            int             `json:"quantity"`
	Payload             json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the fields a caller must supply.
func (i Item) Validate() error {
	if i.ID == "" {
		return ErrEmptyItemID
	}
	if !i.Kind.IsValid() {
		return ErrInvalidKind
	}
	if i.UnitPriceMinorUnits < 0 {
		return ErrNegativePrice
	}
	return nil
}

// Subtotal returns unit price times quantity.
func (i Item) Subtotal() int64 {
	return i.UnitPriceMinorUnits * int64(i.Quantity)
}

// Cart is an ordered set of items with at most one membership.
type Cart struct {
	items []Item
}

// NewCart creates an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// RestoreCart rebuilds a cart from persisted items without re-applying
// merge rules, so stored order and quantities survive a reload.
func RestoreCart(items []Item) *Cart {
	c := &Cart{items: make([]Item, 0, len(items))}
	for _, item := range items {
		if item.Validate() != nil || item.Quantity <= 0 {
			continue
		}
		c.items = append(c.items, item)
	}
	return c
}

// AddItem adds item. A membership replaces any existing membership and is
// held at quantity 1. A punch card with an existing id has its quantity
// added to that entry; otherwise it is appended. A missing or non-positive
// quantity counts as 1.
func (c *Cart) AddItem(item Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	if item.Kind == KindMembership {
		kept := c.items[:0]
		for _, existing := range c.items {
			if existing.Kind != KindMembership {
				kept = append(kept, existing)
			}
		}
		item.Quantity = 1
		c.items = append(kept, item)
		return nil
	}

	for i, existing := range c.items {
		if existing.ID == item.ID {
			merged := existing
			merged.Quantity = existing.Quantity + item.Quantity
			c.items[i] = merged
			return nil
		}
	}
	c.items = append(c.items, item)
	return nil
}

// RemoveItem deletes every item with id and reports whether any existed.
func (c *Cart) RemoveItem(id string) bool {
	kept := c.items[:0]
	removed := false
	for _, item := range c.items {
		if item.ID == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
	return removed
}

// UpdateQuantity sets the quantity of the item with id in place. A quantity
// of zero or less removes it. Reports whether the cart changed.
func (c *Cart) UpdateQuantity(id string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveItem(id)
	}
	changed := false
	for i := range c.items {
		if c.items[i].ID == id && c.items[i].Quantity != quantity {
			c.items[i].Quantity = quantity
			changed = true
		}
	}
	return changed
}

// Clear removes all items.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the item sequence.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct entries.
func (c *Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// TotalPrice sums unit price times quantity over all items.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, item := range c.items {
		total += item.Subtotal()
	}
	return total
}

// ItemCount sums quantities, counting units rather than entries.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Membership returns the membership item, if any.
func (c *Cart) Membership() (Item, bool) {
	for _, item := range c.items {
		if item.Kind == KindMembership {
			return item, true
		}
	}
	return Item{}, false
}
