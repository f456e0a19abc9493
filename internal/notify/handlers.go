package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
)

// Recipients resolves a member's phone number.
type Recipients interface {
	PhoneFor(ctx context.Context, memberID uuid.UUID) (string, error)
}

// WelcomeHandler texts new members once they register.
type WelcomeHandler struct {
	sender Sender
	logger *slog.Logger
}

// NewWelcomeHandler creates a WelcomeHandler.
func NewWelcomeHandler(sender Sender, logger *slog.Logger) *WelcomeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WelcomeHandler{sender: sender, logger: logger}
}

// EventTypes implements eventbus.Handler.
func (h *WelcomeHandler) EventTypes() []string {
	return []string{eventbus.RoutingMemberRegistered}
}

// Handle implements eventbus.Handler.
func (h *WelcomeHandler) Handle(ctx context.Context, event *eventbus.Event) error {
	var payload struct {
		Phone string `json:"phone"`
		Name  string `json:"name"`
	}
	if err := event.Decode(&payload); err != nil {
		h.logger.Warn("skipping malformed member event", "event_id", event.EventID, "error", err)
		return nil
	}
	body := fmt.Sprintf("Welcome to Thermae, %s! Show your check-in code at the front desk.", payload.Name)
	return h.sender.Send(ctx, payload.Phone, body)
}

// OrderReceiptHandler texts a summary after checkout.
type OrderReceiptHandler struct {
	sender     Sender
	recipients Recipients
	logger     *slog.Logger
}

// NewOrderReceiptHandler creates an OrderReceiptHandler.
func NewOrderReceiptHandler(sender Sender, recipients Recipients, logger *slog.Logger) *OrderReceiptHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderReceiptHandler{sender: sender, recipients: recipients, logger: logger}
}

// EventTypes implements eventbus.Handler.
func (h *OrderReceiptHandler) EventTypes() []string {
	return []string{eventbus.RoutingOrderPlaced}
}

// Handle implements eventbus.Handler.
func (h *OrderReceiptHandler) Handle(ctx context.Context, event *eventbus.Event) error {
	var payload struct {
		MemberID        uuid.UUID `json:"member_id"`
		TotalMinorUnits int64     `json:"total_minor_units"`
		ItemCount       int       `json:"item_count"`
	}
	if err := event.Decode(&payload); err != nil {
		h.logger.Warn("skipping malformed order event", "event_id", event.EventID, "error", err)
		return nil
	}

	phone, err := h.recipients.PhoneFor(ctx, payload.MemberID)
	if err != nil {
		return fmt.Errorf("resolve order recipient: %w", err)
	}
	body := fmt.Sprintf("Thermae order %s received: %d item(s), total %s.",
		shortID(event.AggregateID), payload.ItemCount, FormatPrice(payload.TotalMinorUnits))
	return h.sender.Send(ctx, phone, body)
}

// FormatPrice renders minor units as euros, e.g. 9900 -> "99.00 EUR".
func FormatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d EUR", sign, minor/100, minor%100)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
