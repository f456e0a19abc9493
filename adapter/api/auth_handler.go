package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	identityapp "github.com/felixgeelhaar/thermae/internal/identity/application"
	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/pkg/observability"
)

const (
	// SessionCookieName holds the signed session token.
	SessionCookieName = "thermae_session"
	// CartCookieName holds the anonymous cart session id.
	CartCookieName = "thermae_cart"
)

type requestCodeRequest struct {
	Phone string `json:"phone"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

type memberResponse struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toMemberResponse(m *identity.Member) memberResponse {
	return memberResponse{
		ID:        m.ID().String(),
		Phone:     m.Phone().String(),
		Name:      m.Name().String(),
		Email:     m.Email().String(),
		Role:      m.Role().String(),
		CreatedAt: m.CreatedAt(),
	}
}

// handleRequestCode handles POST /auth/code
func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.deps.Verification.RequestCode(r.Context(), req.Phone)
	switch {
	case errors.Is(err, identity.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "failed to send verification code", "error", err)
		writeError(w, http.StatusBadGateway, "Could not send verification code")
		return
	}

	s.deps.Metrics.Counter(observability.MetricSignInCodesIssued, 1)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// handleVerifyCode handles POST /auth/verify
func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.deps.Verification.VerifyCode(r.Context(), req.Phone, req.Code, req.Name)
	switch {
	case errors.Is(err, identity.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, identityapp.ErrCodeInvalid):
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		s.internalError(w, r, "Failed to verify code", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	status := http.StatusOK
	if session.Created {
		status = http.StatusCreated
	}
	s.deps.Metrics.Counter(observability.MetricSignInsCompleted, 1,
		observability.T("new_member", strconv.FormatBool(session.Created)))
	writeJSON(w, status, map[string]any{
		"member":     toMemberResponse(session.Member),
		"expires_at": session.ExpiresAt,
	})
}

// handleLogout handles POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
