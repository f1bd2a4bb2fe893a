// This file holds the request payloads and the helpers that decode and
// validate them.

package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/validator"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type transactionRequest struct {
	Type     string     `json:"type" validate:"txtype"`
	Category string     `json:"category" validate:"notblank,max=100"`
	Amount   core.Money `json:"amount" validate:"gt=0"`
	Note     string     `json:"note" validate:"max=500"`
}

func (r transactionRequest) transaction() core.Transaction {
	return core.Transaction{
		Type:     core.TransactionType(r.Type),
		Category: sanitizeInput(r.Category),
		Amount:   r.Amount,
		Note:     sanitizeInput(r.Note),
	}
}

type categoryRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
	Type string `json:"type" validate:"txtype"`
}

type budgetRequest struct {
	Category string     `json:"category" validate:"notblank,max=100"`
	Amount   core.Money `json:"amount" validate:"gte=0"`
}

type goalRequest struct {
	Name          string     `json:"name" validate:"notblank,max=100"`
	Type          string     `json:"type" validate:"goaltype"`
	TargetAmount  core.Money `json:"target_amount" validate:"gt=0"`
	CurrentAmount core.Money `json:"current_amount" validate:"gte=0"`
	Deadline      string     `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
}

// goal builds the goal, resolving the deadline as a date in loc.
func (r goalRequest) goal(loc *time.Location) core.Goal {
	g := core.Goal{
		Name:          sanitizeInput(r.Name),
		Type:          core.GoalType(r.Type),
		TargetAmount:  r.TargetAmount,
		CurrentAmount: r.CurrentAmount,
	}
	if d, err := time.ParseInLocation("2006-01-02", r.Deadline, loc); err == nil {
		g.Deadline = &d
	}
	return g
}

type quickAddRequest struct {
	Amount core.Money `json:"amount" validate:"gt=0"`
}

type reportRequest struct {
	Window string `json:"window" validate:"window"`
}

// bindJSON decodes the body into req and validates it. On failure the
// response is written and false is returned.
func bindJSON[T any](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			badRequest(c, "amount", "must be a decimal number")
			return false
		}
		badRequest(c, "", "invalid JSON body")
		return false
	}
	if err := validator.Struct(req); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		badRequest(c, "id", "must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
