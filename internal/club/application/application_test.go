package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/felixgeelhaar/thermae/internal/cart/application"
	cart "github.com/felixgeelhaar/thermae/internal/cart/domain"
	"github.com/felixgeelhaar/thermae/internal/club/domain"
	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/kv"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingHandler struct {
	mu     sync.Mutex
	events []*eventbus.Event
}

func (h *recordingHandler) EventTypes() []string {
	return []string{eventbus.RoutingOrderPlaced, eventbus.RoutingCheckInRecorded}
}

func (h *recordingHandler) Handle(ctx context.Context, e *eventbus.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func newBus() (*eventbus.InProcessBus, *recordingHandler) {
	rec := &recordingHandler{}
	bus := eventbus.NewInProcessBus(testLogger())
	bus.Register(rec)
	return bus, rec
}

type memoryOrders struct {
	orders []*domain.Order
	err    error
}

func (r *memoryOrders) Save(ctx context.Context, o *domain.Order) error {
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, o)
	return nil
}

func (r *memoryOrders) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range r.orders {
		if o.MemberID == memberID {
			out = append(out, o)
		}
	}
	return out, nil
}

type memoryCheckIns struct {
	saved []*domain.CheckIn
}

func (r *memoryCheckIns) Save(ctx context.Context, c *domain.CheckIn) error {
	r.saved = append(r.saved, c)
	return nil
}

func (r *memoryCheckIns) List(ctx context.Context, filter domain.CheckInFilter) ([]*domain.CheckIn, error) {
	var out []*domain.CheckIn
	for i := len(r.saved) - 1; i >= 0; i-- {
		c := r.saved[i]
		if filter.MemberID != uuid.Nil && c.MemberID != filter.MemberID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type directory map[uuid.UUID]*identity.Member

func (d directory) Get(ctx context.Context, id uuid.UUID) (*identity.Member, error) {
	m, ok := d[id]
	if !ok {
		return nil, identity.ErrMemberNotFound
	}
	return m, nil
}

func newCart() *cartapp.Store {
	return cartapp.NewStore(kv.NewScope(kv.NewMemoryStore(), "session:test", time.Hour), testLogger())
}

func TestCatalog(t *testing.T) {
	catalog := NewCatalog(nil)

	plans := catalog.ListPlans()
	require.NotEmpty(t, plans)
	assert.Equal(t, "plan-basic", plans[0].ID)

	premium, err := catalog.GetPlan("plan-premium")
	require.NoError(t, err)
	assert.Equal(t, int64(9900), premium.PriceMinorUnits)

	_, err = catalog.GetPlan("plan-missing")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	plans[0].Name = "changed"
	assert.NotEqual(t, "changed", catalog.ListPlans()[0].Name)
}

func TestCheckout_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	bus, rec := newBus()
	orders := &memoryOrders{}
	checkout := NewCheckout(orders, bus, testLogger())
	catalog := NewCatalog(nil)

	c := newCart()
	for _, id := range []string{"plan-premium", "card-5"} {
		plan, err := catalog.GetPlan(id)
		require.NoError(t, err)
		item, err := plan.CartItem(1)
		require.NoError(t, err)
		require.NoError(t, c.AddItem(ctx, item))
	}

	memberID := uuid.New()
	order, err := checkout.PlaceOrder(ctx, c, memberID)
	require.NoError(t, err)

	assert.Equal(t, int64(18900), order.TotalMinorUnits)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, memberID, order.MemberID)
	assert.Len(t, order.Items, 2)
	assert.Empty(t, c.Items(ctx), "cart is cleared after checkout")

	require.Len(t, rec.events, 1)
	event := rec.events[0]
	assert.Equal(t, eventbus.RoutingOrderPlaced, event.RoutingKey)
	assert.Equal(t, order.ID, event.AggregateID)

	var payload struct {
		MemberID        uuid.UUID `json:"member_id"`
		TotalMinorUnits int64     `json:"total_minor_units"`
		ItemCount       int       `json:"item_count"`
	}
	require.NoError(t, event.Decode(&payload))
	assert.Equal(t, memberID, payload.MemberID)
	assert.Equal(t, int64(18900), payload.TotalMinorUnits)
	assert.Equal(t, 2, payload.ItemCount)

	listed, err := checkout.Orders(ctx, memberID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestCheckout_EmptyCart(t *testing.T) {
	bus, rec := newBus()
	checkout := NewCheckout(&memoryOrders{}, bus, testLogger())

	_, err := checkout.PlaceOrder(context.Background(), newCart(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Empty(t, rec.events)
}

func TestCheckout_SaveFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	checkout := NewCheckout(&memoryOrders{err: errors.New("disk full")}, nil, testLogger())

	c := newCart()
	require.NoError(t, c.AddItem(ctx, cart.Item{ID: "card-10", Kind: cart.KindPunchCard, UnitPriceMinorUnits: 16000}))

	_, err := checkout.PlaceOrder(ctx, c, uuid.New())
	require.Error(t, err)
	assert.Len(t, c.Items(ctx), 1)
}

// gatedOrders blocks Save until release is closed.
type gatedOrders struct {
	memoryOrders
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
}

func newGatedOrders() *gatedOrders {
	return &gatedOrders{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (r *gatedOrders) Save(ctx context.Context, o *domain.Order) error {
	r.entered <- struct{}{}
	<-r.release
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memoryOrders.Save(ctx, o)
}

func TestCheckout_ItemAddedDuringSaveStaysInCart(t *testing.T) {
	ctx := context.Background()
	orders := newGatedOrders()
	checkout := NewCheckout(orders, nil, testLogger())

	c := newCart()
	require.NoError(t, c.AddItem(ctx, cart.Item{ID: "plan-basic", Kind: cart.KindMembership, UnitPriceMinorUnits: 6500}))

	done := make(chan error, 1)
	go func() {
		_, err := checkout.PlaceOrder(ctx, c, uuid.New())
		done <- err
	}()

	<-orders.entered
	require.NoError(t, c.AddItem(ctx, cart.Item{ID: "card-10", Kind: cart.KindPunchCard, UnitPriceMinorUnits: 16000}))
	close(orders.release)
	require.NoError(t, <-done)

	require.Len(t, orders.orders, 1)
	require.Len(t, orders.orders[0].Items, 1)
	assert.Equal(t, "plan-basic", orders.orders[0].Items[0].ID)

	remaining := c.Items(ctx)
	require.Len(t, remaining, 1)
	assert.Equal(t, "card-10", remaining[0].ID)
}

func TestCheckout_ConcurrentCheckoutsPlaceOneOrder(t *testing.T) {
	ctx := context.Background()
	orders := newGatedOrders()
	checkout := NewCheckout(orders, nil, testLogger())

	c := newCart()
	require.NoError(t, c.AddItem(ctx, cart.Item{ID: "card-5", Kind: cart.KindPunchCard, UnitPriceMinorUnits: 8500}))

	const callers = 2
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			_, err := checkout.PlaceOrder(ctx, c, uuid.New())
			errs <- err
		}()
	}

	<-orders.entered
	close(orders.release)

	var placed, empty int
	for i := 0; i < callers; i++ {
		err := <-errs
		switch {
		case err == nil:
			placed++
		case errors.Is(err, domain.ErrEmptyCart):
			empty++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, empty)
	assert.Len(t, orders.orders, 1)
	assert.Empty(t, c.Items(ctx))
}

func TestCheckout_SaveFailureRestoresAheadOfNewItems(t *testing.T) {
	ctx := context.Background()
	c := newCart()
	require.NoError(t, c.AddItem(ctx, cart.Item{ID: "card-5", Kind: cart.KindPunchCard, UnitPriceMinorUnits: 8500, Quantity: 1}))

	taken := c.Take(ctx)
	require.Len(t, taken, 1)
	assert.Empty(t, c.Items(ctx))

	require.NoError(t, c.AddItem(ctx, cart.Item{ID: "card-5", Kind: cart.KindPunchCard, UnitPriceMinorUnits: 8500, Quantity: 2}))
	require.NoError(t, c.AddItem(ctx, cart.Item{ID: "plan-basic", Kind: cart.KindMembership, UnitPriceMinorUnits: 6500}))
	c.Restore(ctx, taken)

	items := c.Items(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, "card-5", items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "plan-basic", items[1].ID)
}

func TestCheckIns(t *testing.T) {
	ctx := context.Background()
	phone, err := identity.NewPhone("+358401234567")
	require.NoError(t, err)
	name, err := identity.NewName("Aino")
	require.NoError(t, err)
	member := identity.NewMember(phone, name)

	bus, rec := newBus()
	repo := &memoryCheckIns{}
	svc := NewCheckIns(repo, directory{member.ID(): member}, bus, testLogger())

	t.Run("manual by staff", func(t *testing.T) {
		staff := uuid.New()
		c, err := svc.Record(ctx, member.ID(), domain.MethodManual, staff)
		require.NoError(t, err)
		assert.Equal(t, staff, c.StaffID)
		assert.Equal(t, domain.MethodManual, c.Method)
	})

	t.Run("qr payload", func(t *testing.T) {
		c, err := svc.RecordByPayload(ctx, svc.Payload(member.ID()), uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, domain.MethodQR, c.Method)
		assert.Equal(t, member.ID(), c.MemberID)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := svc.Record(ctx, uuid.New(), domain.MethodManual, uuid.Nil)
		assert.ErrorIs(t, err, identity.ErrMemberNotFound)
	})

	t.Run("bad payload", func(t *testing.T) {
		_, err := svc.RecordByPayload(ctx, "https://example.com", uuid.Nil)
		assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	})

	t.Run("bad method", func(t *testing.T) {
		_, err := svc.Record(ctx, member.ID(), domain.CheckInMethod("nfc"), uuid.Nil)
		assert.ErrorIs(t, err, domain.ErrInvalidMethod)
	})

	listed, err := svc.List(ctx, domain.CheckInFilter{MemberID: member.ID()})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, domain.MethodQR, listed[0].Method)

	assert.Len(t, rec.events, 2)
	for _, e := range rec.events {
		assert.Equal(t, eventbus.RoutingCheckInRecorded, e.RoutingKey)
	}
}
