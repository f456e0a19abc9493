package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckInPayloadPrefix starts every check-in QR payload.
const CheckInPayloadPrefix = "thermae:checkin:"

var (
	ErrInvalidMethod  = errors.New("check-in method must be qr or manual")
	ErrInvalidPayload = errors.New("not a thermae check-in code")
)

// CheckInMethod records how the visit was registered.
type CheckInMethod string

const (
	MethodQR     CheckInMethod = "qr"
	MethodManual CheckInMethod = "manual"
)

// IsValid reports whether m is a known method.
func (m CheckInMethod) IsValid() bool {
	return m == MethodQR || m == MethodManual
}

// CheckIn is one visit to the club.
type CheckIn struct {
	ID          uuid.UUID     `json:"id"`
	MemberID    uuid.UUID     `json:"member_id"`
	Method      CheckInMethod `json:"method"`
	StaffID     uuid.UUID     `json:"staff_id"`
	CheckedInAt time.Time     `json:"checked_in_at"`
}

// NewCheckIn records a visit now. staffID is uuid.Nil for self check-in.
func NewCheckIn(memberID uuid.UUID, method CheckInMethod, staffID uuid.UUID) (*CheckIn, error) {
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}
	return &CheckIn{
		ID:          uuid.New(),
		MemberID:    memberID,
		Method:      method,
		StaffID:     staffID,
		CheckedInAt: time.Now().UTC(),
	}, nil
}

// CheckInPayload is the string encoded in a member's QR code.
func CheckInPayload(memberID uuid.UUID) string {
	return CheckInPayloadPrefix + memberID.String()
}

// ParseCheckInPayload extracts the member id from a scanned payload.
func ParseCheckInPayload(payload string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(payload), CheckInPayloadPrefix)
	if !ok {
		return uuid.Nil, ErrInvalidPayload
	}
	id, err := uuid.Parse(rest)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidPayload
	}
	return id, nil
}

// CheckInFilter narrows check-in listings. Zero fields do not filter.
type CheckInFilter struct {
	MemberID uuid.UUID
	Since    time.Time
	Limit    int
}
