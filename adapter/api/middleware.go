package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	access "github.com/felixgeelhaar/thermae/internal/access/domain"
	"github.com/felixgeelhaar/thermae/pkg/observability"
)

const (
	requestIDHeader     = "X-Request-ID"
	correlationIDHeader = "X-Correlation-ID"
)

type ctxKey int

const decisionKey ctxKey = iota

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestContext assigns request and correlation ids and logs each
// request once it completes.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := observability.WithRequestID(r.Context(), r.Header.Get(requestIDHeader))
		ctx = observability.WithCorrelationID(ctx, r.Header.Get(correlationIDHeader))
		w.Header().Set(requestIDHeader, observability.RequestIDFromContext(ctx))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		tags := []observability.Tag{
			observability.T("method", r.Method),
			observability.T("status", strconv.Itoa(rec.status)),
		}
		s.deps.Metrics.Counter(observability.MetricHTTPRequests, 1, tags...)
		s.deps.Metrics.Timing(observability.MetricHTTPDuration, elapsed, tags...)

		s.logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			observability.DurationKey, elapsed.Milliseconds(),
		)
	})
}

// withGate runs the access gate for every request. Guarded paths only reach
// the router when the decision is render.
func (s *Server) withGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookup := access.Anonymous()
		if s.deps.Identity != nil {
			lookup = s.deps.Identity.Lookup(r.Context(), sessionToken(r))
		}
		decision := s.deps.Routes.Evaluate(lookup, r.URL.Path)
		s.deps.Metrics.Counter(observability.MetricGateDecisions, 1,
			observability.T("outcome", string(decision.Outcome)),
			observability.T("gate", decision.Gate),
		)

		switch decision.Outcome {
		case access.OutcomeLoading:
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, decision)

		case access.OutcomeRedirect:
			location := decision.Location + "?next=" + url.QueryEscape(decision.Next)
			if isAPIPath(r.URL.Path) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":    http.StatusText(http.StatusUnauthorized),
					"message":  "Sign in required",
					"location": location,
				})
				return
			}
			http.Redirect(w, r, location, http.StatusFound)

		case access.OutcomeDenied:
			writeJSON(w, http.StatusForbidden, decision)

		default:
			ctx := context.WithValue(r.Context(), decisionKey, decision)
			if decision.Identity != nil {
				ctx = observability.WithMemberID(ctx, decision.Identity.MemberID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

// identityFrom returns the authenticated caller, if any.
func identityFrom(ctx context.Context) (*access.Identity, bool) {
	d, ok := ctx.Value(decisionKey).(access.Decision)
	if !ok || d.Identity == nil {
		return nil, false
	}
	return d.Identity, true
}

// requireIdentity writes 401 when the request has no caller. Guarded
// routes never hit this; it protects handlers mounted on public paths.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*access.Identity, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Sign in required")
	}
	return id, ok
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
