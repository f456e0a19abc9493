package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	club "github.com/felixgeelhaar/thermae/internal/club/domain"
	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/pkg/observability"
)

type setRoleRequest struct {
	Role string `json:"role"`
}

type recordCheckInRequest struct {
	MemberID string `json:"member_id"`
	Payload  string `json:"payload"`
}

// handleListMembers handles GET /api/v1/admin/members
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	filter := identity.MemberFilter{
		Limit:  parseIntParam(r, "limit", 100),
		Offset: parseIntParam(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("role"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			role, err := identity.ParseRole(part)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filter.Roles = append(filter.Roles, role)
		}
	}

	members, err := s.deps.Members.List(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, "Failed to list members", err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": out})
}

// handleSetRole handles PATCH /api/v1/admin/members/{memberID}/role. Only
// admins may change roles; staff can read the console but not promote.
func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if caller.Role != identity.RoleAdmin {
		writeError(w, http.StatusForbidden, "Only admins can change roles")
		return
	}

	memberID, err := uuid.Parse(r.PathValue("memberID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid member ID")
		return
	}
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := s.deps.Members.SetRole(r.Context(), memberID, role)
	switch {
	case errors.Is(err, identity.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.internalError(w, r, "Failed to change role", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

// handleListCheckIns handles GET /api/v1/admin/checkins
func (s *Server) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	filter := club.CheckInFilter{Limit: parseIntParam(r, "limit", 100)}

	if raw := r.URL.Query().Get("member_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid member ID")
			return
		}
		filter.MemberID = id
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}

	checkIns, err := s.deps.CheckIns.List(r.Context(), filter)
	if err != nil {
		s.internalError(w, r, "Failed to list check-ins", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkins": nonNil(checkIns)})
}

// handleRecordCheckIn handles POST /api/v1/admin/checkins. A scanned QR
// payload records a qr visit; a bare member id records a manual one.
func (s *Server) handleRecordCheckIn(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req recordCheckInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		checkIn *club.CheckIn
		err     error
	)
	switch {
	case req.Payload != "":
		checkIn, err = s.deps.CheckIns.RecordByPayload(r.Context(), req.Payload, caller.MemberID)
	case req.MemberID != "":
		memberID, parseErr := uuid.Parse(req.MemberID)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "Invalid member ID")
			return
		}
		checkIn, err = s.deps.CheckIns.Record(r.Context(), memberID, club.MethodManual, caller.MemberID)
	default:
		writeError(w, http.StatusBadRequest, "payload or member_id is required")
		return
	}

	switch {
	case errors.Is(err, club.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, identity.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.internalError(w, r, "Failed to record check-in", err)
		return
	}
	s.deps.Metrics.Counter(observability.MetricCheckInsRecorded, 1, observability.T("method", string(checkIn.Method)))
	writeJSON(w, http.StatusCreated, checkIn)
}

// handleMetrics handles GET /api/v1/admin/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshotter, ok := s.deps.Metrics.(interface {
		Snapshot() observability.MetricsSnapshot
	})
	if !ok {
		writeError(w, http.StatusNotFound, "Metrics are not collected")
		return
	}
	writeJSON(w, http.StatusOK, snapshotter.Snapshot())
}
