package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/thermae/internal/cart/domain"
)

func membership(id string, price int64) domain.Item {
	return domain.Item{ID: id, Kind: domain.KindMembership, Name: id, UnitPriceMinorUnits: price, Quantity: 1}
}

func punchCard(id string, price int64, qty int) domain.Item {
	return domain.Item{ID: id, Kind: domain.KindPunchCard, Name: id, UnitPriceMinorUnits: price, Quantity: qty}
}

func ids(items []domain.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestCart_MembershipReplacesPrevious(t *testing.T) {
	c := domain.NewCart()
	require.NoError(t, c.AddItem(membership("plan-basic", 6500)))
	require.NoError(t, c.AddItem(membership("plan-premium", 9900)))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "plan-premium", items[0].ID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, int64(9900), c.TotalPrice())
}

func TestCart_NeverHoldsTwoMemberships(t *testing.T) {
	c := domain.NewCart()
	require.NoError(t, c.AddItem(punchCard("card-10", 12000, 1)))
	for _, id := range []string{"plan-a", "plan-b", "plan-a", "plan-c"} {
		require.NoError(t, c.AddItem(membership(id, 5000)))

		count := 0
		for _, item := range c.Items() {
			if item.Kind == domain.KindMembership {
				count++
			}
		}
		assert.Equal(t, 1, count)
	}

	m, ok := c.Membership()
	require.True(t, ok)
	assert.Equal(t, "plan-c", m.ID)
	assert.Equal(t, []string{"card-10", "plan-c"}, ids(c.Items()))
}

func TestCart_MembershipQuantityForcedToOne(t *testing.T) {
	c := domain.NewCart()
	item := membership("plan-basic", 6500)
	item.Quantity = 4
	require.NoError(t, c.AddItem(item))

	assert.Equal(t, 1, c.ItemCount())
	assert.Equal(t, int64(6500), c.TotalPrice())
}

func TestCart_PunchCardMergesQuantity(t *testing.T) {
	c := domain.NewCart()
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 2)))
	require.NoError(t, c.AddItem(punchCard("card-10", 8000, 1)))
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 3)))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, []string{"card-5", "card-10"}, ids(items))
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCart_PunchCardDefaultsQuantityToOne(t *testing.T) {
	c := domain.NewCart()
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 0)))
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 0)))
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, -2)))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestCart_ItemCountCountsUnits(t *testing.T) {
	c := domain.NewCart()
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 3)))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.ItemCount())
}

func TestCart_RemoveItem(t *testing.T) {
	c := domain.NewCart()
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 1)))
	require.NoError(t, c.AddItem(membership("plan-basic", 6500)))

	assert.False(t, c.RemoveItem("missing"))
	assert.Equal(t, 2, c.Len())

	assert.True(t, c.RemoveItem("card-5"))
	assert.Equal(t, []string{"plan-basic"}, ids(c.Items()))
}

func TestCart_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
	}{
		{name: "sets quantity", quantity: 7},
		{name: "zero removes", quantity: 0},
		{name: "negative removes", quantity: -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewCart()
			require.NoError(t, c.AddItem(punchCard("card-5", 4500, 1)))
			require.NoError(t, c.AddItem(punchCard("card-10", 8000, 1)))

			assert.True(t, c.UpdateQuantity("card-5", tt.quantity))
			if tt.quantity > 0 {
				assert.Equal(t, []string{"card-5", "card-10"}, ids(c.Items()))
				assert.Equal(t, tt.quantity, c.Items()[0].Quantity)
				return
			}
			assert.Equal(t, []string{"card-10"}, ids(c.Items()))
		})
	}
}

func TestCart_UpdateQuantityMissingIsNoop(t *testing.T) {
	c := domain.NewCart()
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 1)))

	assert.False(t, c.UpdateQuantity("missing", 3))
	assert.False(t, c.UpdateQuantity("card-5", 1))
	assert.Equal(t, 1, c.ItemCount())
}

func TestCart_TotalPriceInvariant(t *testing.T) {
	c := domain.NewCart()
	check := func() {
		var want int64
		for _, item := range c.Items() {
			want += item.UnitPriceMinorUnits * int64(item.Quantity)
		}
		assert.Equal(t, want, c.TotalPrice())
	}

	require.NoError(t, c.AddItem(membership("plan-basic", 6500)))
	check()
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 2)))
	check()
	require.NoError(t, c.AddItem(punchCard("card-5", 4500, 1)))
	check()
	c.UpdateQuantity("card-5", 10)
	check()
	require.NoError(t, c.AddItem(membership("plan-premium", 9900)))
	check()
	c.RemoveItem("plan-premium")
	check()
	assert.Equal(t, int64(45000), c.TotalPrice())
	c.Clear()
	check()
	assert.True(t, c.IsEmpty())
}

func TestCart_RejectsInvalidItems(t *testing.T) {
	c := domain.NewCart()
	assert.ErrorIs(t, c.AddItem(domain.Item{Kind: domain.KindPunchCard}), domain.ErrEmptyItemID)
	assert.ErrorIs(t, c.AddItem(domain.Item{ID: "x", Kind: "gift"}), domain.ErrInvalidKind)
	assert.ErrorIs(t, c.AddItem(domain.Item{ID: "x", Kind: domain.KindPunchCard, UnitPriceMinorUnits: -1}), domain.ErrNegativePrice)
	assert.True(t, c.IsEmpty())
}

func TestCart_PayloadCarriedUnmodified(t *testing.T) {
	payload := json.RawMessage(`{"id":"plan-basic","period":"month","perks":["sauna"]}`)
	item := membership("plan-basic", 6500)
	item.Payload = payload

	c := domain.NewCart()
	require.NoError(t, c.AddItem(item))
	assert.JSONEq(t, string(payload), string(c.Items()[0].Payload))
}

func TestRestoreCart_PreservesOrderAndSkipsInvalid(t *testing.T) {
	c := domain.RestoreCart([]domain.Item{
		punchCard("card-10", 8000, 2),
		{ID: "", Kind: domain.KindPunchCard, Quantity: 1},
		membership("plan-basic", 6500),
		punchCard("card-5", 4500, 0),
	})

	assert.Equal(t, []string{"card-10", "plan-basic"}, ids(c.Items()))
	assert.Equal(t, 3, c.ItemCount())
}
