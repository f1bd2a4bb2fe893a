package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Saving GoalType = "saving"
	Debt   GoalType = "debt"
)

type (
	TransactionType string

	GoalType string

	// Transaction is a dated, typed, categorized monetary entry.
	Transaction struct {
		ID        uuid.UUID       `json:"id"`
		OwnerID   uuid.UUID       `json:"-"`
		Type      TransactionType `json:"type"`
		Category  string          `json:"category"`
		Amount    Money           `json:"amount"`
		Note      string          `json:"note"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// Category is a named income or expense label.
	Category struct {
		ID        uuid.UUID       `json:"id"`
		OwnerID   uuid.UUID       `json:"-"`
		Name      string          `json:"name"`
		Type      TransactionType `json:"type"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// Budget is a spending ceiling keyed by category name.
	Budget struct {
		ID        uuid.UUID `json:"id"`
		OwnerID   uuid.UUID `json:"-"`
		Category  string    `json:"category"`
		Amount    Money     `json:"amount"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Goal is a savings or debt target.
	Goal struct {
		ID            uuid.UUID  `json:"id"`
		OwnerID       uuid.UUID  `json:"-"`
		Name          string     `json:"name"`
		Type          GoalType   `json:"type"`
		TargetAmount  Money      `json:"target_amount"`
		CurrentAmount Money      `json:"current_amount"`
		Deadline      *time.Time `json:"deadline,omitempty"`
		CreatedAt     time.Time  `json:"createdAt"`
	}
)

// Entity is implemented by every record kept in an entity store.
type Entity interface {
	EntityID() uuid.UUID
	Validate() error
}

func (t Transaction) EntityID() uuid.UUID { return t.ID }
func (c Category) EntityID() uuid.UUID    { return c.ID }
func (b Budget) EntityID() uuid.UUID      { return b.ID }
func (g Goal) EntityID() uuid.UUID        { return g.ID }

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (g GoalType) IsValid() bool {
	return g == Saving || g == Debt
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return &ValidationError{Field: "type", Message: "must be income or expense", Err: ErrInvalidType}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Message: "must not be empty", Err: ErrEmptyCategory}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be greater than zero", Err: ErrInvalidAmount}
	}
	if len(t.Note) > 500 {
		return NewValidationError("note", "too long (max 500 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty", Err: ErrEmptyName}
	}
	if len(c.Name) > 100 {
		return NewValidationError("name", "too long (max 100 characters)")
	}
	if !c.Type.IsValid() {
		return &ValidationError{Field: "type", Message: "must be income or expense", Err: ErrInvalidType}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return &ValidationError{Field: "category", Message: "must not be empty", Err: ErrEmptyCategory}
	}
	if b.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: "must not be negative", Err: ErrInvalidAmount}
	}
	return nil
}

// Validate checks shape and range. current_amount above target_amount is
// soft-enforced and therefore accepted here.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty", Err: ErrEmptyName}
	}
	if !g.Type.IsValid() {
		return &ValidationError{Field: "type", Message: "must be saving or debt", Err: ErrInvalidGoalType}
	}
	if !g.TargetAmount.IsPositive() {
		return &ValidationError{Field: "target_amount", Message: "must be greater than zero", Err: ErrInvalidAmount}
	}
	if g.CurrentAmount.IsNegative() {
		return &ValidationError{Field: "current_amount", Message: "must not be negative", Err: ErrInvalidAmount}
	}
	return nil
}

// Remaining returns how much is left before the goal reaches its target.
func (g Goal) Remaining() Money {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return Zero
	}
	return r
}

// ParseTransactionType parses "income" or "expense".
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ParseGoalType parses "saving" or "debt".
func ParseGoalType(s string) (GoalType, error) {
	g := GoalType(strings.ToLower(strings.TrimSpace(s)))
	if !g.IsValid() {
		return "", ErrInvalidGoalType
	}
	return g, nil
}

// OwnerFromString parses an owner identifier. An empty or nil owner means
// there is no session.
func OwnerFromString(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, errors.Join(ErrNoSession, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, ErrNoSession
	}
	return id, nil
}
