package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/thermae/internal/club/domain"
	identity "github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/eventbus"
)

// MemberDirectory looks up members.
type MemberDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.Member, error)
}

// CheckIns records and lists club visits.
type CheckIns struct {
	repo      domain.CheckInRepository
	members   MemberDirectory
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewCheckIns creates the check-in service.
func NewCheckIns(repo domain.CheckInRepository, members MemberDirectory, publisher eventbus.Publisher, logger *slog.Logger) *CheckIns {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	return &CheckIns{repo: repo, members: members, publisher: publisher, logger: logger}
}

// Record registers a visit for memberID. staffID is the desk user, or
// uuid.Nil for a self check-in.
func (s *CheckIns) Record(ctx context.Context, memberID uuid.UUID, method domain.CheckInMethod, staffID uuid.UUID) (*domain.CheckIn, error) {
	if _, err := s.members.Get(ctx, memberID); err != nil {
		return nil, err
	}

	checkIn, err := domain.NewCheckIn(memberID, method, staffID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, checkIn); err != nil {
		return nil, fmt.Errorf("save check-in: %w", err)
	}

	s.logger.InfoContext(ctx, "check-in recorded",
		"member_id", memberID,
		"method", method,
		"staff_id", staffID,
	)

	event, err := eventbus.NewEvent(eventbus.RoutingCheckInRecorded, "CheckIn", checkIn.ID, checkIn)
	if err == nil {
		err = eventbus.Emit(ctx, s.publisher, event)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish check-in event", "error", err)
	}
	return checkIn, nil
}

// RecordByPayload records a QR check-in from a scanned payload.
func (s *CheckIns) RecordByPayload(ctx context.Context, payload string, staffID uuid.UUID) (*domain.CheckIn, error) {
	memberID, err := domain.ParseCheckInPayload(payload)
	if err != nil {
		return nil, err
	}
	return s.Record(ctx, memberID, domain.MethodQR, staffID)
}

// List returns check-ins newest first.
func (s *CheckIns) List(ctx context.Context, filter domain.CheckInFilter) ([]*domain.CheckIn, error) {
	return s.repo.List(ctx, filter)
}

// Payload returns the QR payload for memberID.
func (s *CheckIns) Payload(memberID uuid.UUID) string {
	return domain.CheckInPayload(memberID)
}
