package api

import (
	"errors"
	"net/http"

	"github.com/felixgeelhaar/thermae/internal/club/domain"
	"github.com/felixgeelhaar/thermae/internal/club/infrastructure/qr"
	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
)

const maxQRSize = 1024

// handleListPlans handles GET /api/v1/plans
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"plans": s.deps.Catalog.ListPlans(),
	})
}

// handleGetPlan handles GET /api/v1/plans/{planID}
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.deps.Catalog.GetPlan(r.PathValue("planID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleMe handles GET /api/v1/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	member, err := s.deps.Members.Get(r.Context(), id.MemberID)
	switch {
	case errors.Is(err, identity.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.internalError(w, r, "Failed to load member", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

// handleCheckInQR handles GET /api/v1/me/checkin-qr
func (s *Server) handleCheckInQR(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	size := parseIntParam(r, "size", qr.DefaultSize)
	if size <= 0 || size > maxQRSize {
		writeError(w, http.StatusBadRequest, "size must be between 1 and 1024")
		return
	}

	png, err := qr.Render(s.deps.CheckIns.Payload(id.MemberID), qr.Options{
		Size:  size,
		Level: qr.Level(r.URL.Query().Get("level")),
	})
	if err != nil {
		s.internalError(w, r, "Failed to render check-in code", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// handleMyCheckIns handles GET /api/v1/me/checkins
func (s *Server) handleMyCheckIns(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	checkIns, err := s.deps.CheckIns.List(r.Context(), domain.CheckInFilter{
		MemberID: id.MemberID,
		Limit:    parseIntParam(r, "limit", 50),
	})
	if err != nil {
		s.internalError(w, r, "Failed to list check-ins", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkins": nonNil(checkIns)})
}

// handleMyOrders handles GET /api/v1/me/orders
func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orders, err := s.deps.Checkout.Orders(r.Context(), id.MemberID)
	if err != nil {
		s.internalError(w, r, "Failed to list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": nonNil(orders)})
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
