package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned when registering an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// User is a registered owner. Every ledger row is scoped to a User.ID.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail lowercases and trims an email for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type ReportStatus string

const (
	ReportPending ReportStatus = "pending"
	ReportDone    ReportStatus = "done"
	ReportFailed  ReportStatus = "failed"
)

// Report is a spending analysis requested for one date window.
type Report struct {
	ID          uuid.UUID        `json:"id"`
	OwnerID     uuid.UUID        `json:"-"`
	Window      string           `json:"window"`
	Status      ReportStatus     `json:"status"`
	Summary     *SpendingSummary `json:"summary,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}
