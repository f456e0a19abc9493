package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/thermae/pkg/observability"
)

// ErrCircuitOpen is returned while the provider is considered down.
var ErrCircuitOpen = errors.New("sms provider unavailable: circuit open")

// HTTPSenderConfig configures the SMS provider client.
type HTTPSenderConfig struct {
	// APIURL is the provider's message endpoint.
	APIURL    string
	AccountID string
	AuthToken string
	From      string

	// Timeout bounds a single delivery request.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultHTTPSenderConfig returns defaults for the timing fields.
func DefaultHTTPSenderConfig() HTTPSenderConfig {
	return HTTPSenderConfig{
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("sms provider returned %d: %s", e.StatusCode, e.Body)
}

// HTTPSender posts messages to an HTTP SMS API using form encoding and basic
// auth, behind a circuit breaker.
type HTTPSender struct {
	cfg     HTTPSenderConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// NewHTTPSender creates a sender. Zero timing fields take their defaults.
func NewHTTPSender(cfg HTTPSenderConfig, logger *slog.Logger) *HTTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultHTTPSenderConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}

	s := &HTTPSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "sms",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: providerHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return s
}

// State returns the breaker state name.
func (s *HTTPSender) State() string {
	return s.breaker.State().String()
}

// Send delivers body to the recipient. Non-2xx answers and transport
// errors are returned; while the breaker is open ErrCircuitOpen is
// returned without contacting the provider.
func (s *HTTPSender) Send(ctx context.Context, to, body string) error {
	if err := validateMessage(to, body); err != nil {
		return err
	}

	start := time.Now()
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, to, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "sms delivery failed",
			observability.DurationKey, time.Since(start).Milliseconds(),
			"error", err,
		)
		return err
	}

	s.logger.DebugContext(ctx, "sms delivered",
		observability.DurationKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *HTTPSender) post(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.From)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(s.cfg.AccountID, s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// providerHealthy reports whether err leaves the provider's health
// unquestioned: caller cancellation and client-side rejections such as an
// unknown recipient do not count against the breaker. Throttling does.
func providerHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.StatusCode >= 400 && perr.StatusCode < 500 &&
			perr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

var _ Sender = (*HTTPSender)(nil)
