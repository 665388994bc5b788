package model

import (
	"strings"
	"time"

	"lifeboard/internal/domain"
)

type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusInactive LicenseStatus = "inactive"
)

// ParseLicenseStatus accepts "active"/"inactive" in any case.
func ParseLicenseStatus(s string) (LicenseStatus, error) {
	switch LicenseStatus(strings.ToLower(strings.TrimSpace(s))) {
	case LicenseStatusActive:
		return LicenseStatusActive, nil
	case LicenseStatusInactive:
		return LicenseStatusInactive, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// License is the access-entitlement record of a single email.
// Email is the unique key; rows are created on first event and only updated afterwards.
type License struct {
	Email              string        `json:"email"`
	Status             LicenseStatus `json:"status"`
	ExternalPurchaseID *string       `json:"external_purchase_id,omitempty"`
	LastEventStatus    *string       `json:"last_event_status,omitempty"`
	LastEventType      *string       `json:"last_event_type,omitempty"`
	LastEventAt        *time.Time    `json:"last_event_at,omitempty"` // provider timestamp, nil when the payload had none
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// NewLicenseFromOutcome builds the row that an applied event should leave behind.
func NewLicenseFromOutcome(ev *NormalizedEvent, out ActivationOutcome) (*License, error) {
	if ev == nil {
		return nil, domain.ErrInvalidArgument
	}
	email := NormalizeEmail(ev.Email)
	if email == "" {
		return nil, domain.ErrMissingEmail
	}
	now := time.Now().UTC()
	l := &License{
		Email:              email,
		Status:             LicenseStatusInactive,
		ExternalPurchaseID: ev.PurchaseID,
		LastEventStatus:    nonEmpty(ev.Status),
		LastEventType:      nonEmpty(ev.EventType),
		LastEventAt:        ev.OccurredAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if out.Activate {
		l.Status = LicenseStatusActive
	}
	return l, nil
}

func (l *License) IsActive() bool { return l != nil && l.Status == LicenseStatusActive }

// NormalizeEmail is the canonical form used as the license key.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
