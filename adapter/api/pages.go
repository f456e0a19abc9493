package api

import (
	"net/http"

	access "github.com/felixgeelhaar/thermae/internal/access/domain"
)

type pageResponse struct {
	Page     string          `json:"page"`
	Decision access.Decision `json:"decision"`
	MemberID string          `json:"member_id,omitempty"`
	Role     string          `json:"role,omitempty"`
	Next     string          `json:"next,omitempty"`
}

// handlePage answers the app's page routes with the gate decision that let
// the request through. Rendering is left to the client.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	decision, _ := r.Context().Value(decisionKey).(access.Decision)

	resp := pageResponse{
		Page:     r.URL.Path,
		Decision: decision,
		Next:     r.URL.Query().Get("next"),
	}
	if decision.Identity != nil {
		resp.MemberID = decision.Identity.MemberID.String()
		resp.Role = decision.Identity.Role.String()
	}
	writeJSON(w, http.StatusOK, resp)
}
