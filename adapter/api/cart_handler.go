package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	cartapp "github.com/felixgeelhaar/thermae/internal/cart/application"
	cart "github.com/felixgeelhaar/thermae/internal/cart/domain"
	club "github.com/felixgeelhaar/thermae/internal/club/domain"
	"github.com/felixgeelhaar/thermae/pkg/observability"
)

type addCartItemRequest struct {
	PlanID   string `json:"plan_id"`
	Quantity int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// cartID returns the request's cart cookie value if it is well formed.
func cartID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CartCookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// cartFor returns the cart for the request's cart cookie, issuing a new
// cookie when the request has none.
func (s *Server) cartFor(w http.ResponseWriter, r *http.Request) *cartapp.Store {
	if id, ok := cartID(r); ok {
		return s.deps.Carts.For(id)
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cookies.CartTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s.deps.Carts.For(id)
}

// handleGetCart handles GET /api/v1/cart
// A visitor without a cart cookie sees an empty cart and gets no session.
func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := cartID(r)
	if !ok {
		writeJSON(w, http.StatusOK, cartapp.Summary{Items: []cart.Item{}})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Carts.For(id).Summary(r.Context()))
}

// handleAddCartItem handles POST /api/v1/cart/items
func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := s.deps.Catalog.GetPlan(req.PlanID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	item, err := plan.CartItem(req.Quantity)
	if err != nil {
		s.internalError(w, r, "Failed to build cart item", err)
		return
	}

	store := s.cartFor(w, r)
	if err := store.AddItem(r.Context(), item); err != nil {
		if errors.Is(err, cart.ErrInvalidKind) || errors.Is(err, cart.ErrEmptyItemID) || errors.Is(err, cart.ErrNegativePrice) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, r, "Failed to add item", err)
		return
	}
	writeJSON(w, http.StatusOK, store.Summary(r.Context()))
}

// handleUpdateCartItem handles PATCH /api/v1/cart/items/{itemID}
func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := s.cartFor(w, r)
	store.UpdateQuantity(r.Context(), r.PathValue("itemID"), req.Quantity)
	writeJSON(w, http.StatusOK, store.Summary(r.Context()))
}

// handleRemoveCartItem handles DELETE /api/v1/cart/items/{itemID}
func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	store := s.cartFor(w, r)
	store.RemoveItem(r.Context(), r.PathValue("itemID"))
	writeJSON(w, http.StatusOK, store.Summary(r.Context()))
}

// handleClearCart handles DELETE /api/v1/cart
func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.cartFor(w, r).Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleCheckout handles POST /api/v1/checkout
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	store := s.cartFor(w, r)
	order, err := observability.TimeOperationResult(s.logger, s.deps.Metrics, "checkout.place_order", func() (*club.Order, error) {
		return s.deps.Checkout.PlaceOrder(r.Context(), store, id.MemberID)
	})
	switch {
	case errors.Is(err, club.ErrEmptyCart):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.internalError(w, r, "Failed to place order", err)
		return
	}
	s.deps.Metrics.Counter(observability.MetricOrdersPlaced, 1)
	writeJSON(w, http.StatusCreated, order)
}
