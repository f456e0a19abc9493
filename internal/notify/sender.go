// Package notify delivers SMS messages and generates the verification codes
// sent through them.
package notify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
)

var (
	ErrEmptyRecipient = errors.New("sms recipient is required")
	ErrEmptyBody      = errors.New("sms body is required")
)

// Sender delivers a text message. Delivery failures are returned.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

const (
	codeMin = 100000
	codeMax = 999999
)

// GenerateCode returns a six-digit code drawn uniformly from
// [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

func validateMessage(to, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrEmptyRecipient
	}
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMS provider is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, to, body string) error {
	if err := validateMessage(to, body); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "sms not delivered, no provider configured",
		"to", to,
		"body", body,
	)
	return nil
}
