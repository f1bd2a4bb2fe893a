package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/auth"
	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", core.NewValidationError("amount", "must be positive"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", core.NewValidationError("name", "empty")), http.StatusBadRequest},
		{"not found", &core.NotFoundError{Entity: "goal", ID: "x"}, http.StatusNotFound},
		{"category in use", &core.CategoryInUseError{Category: "อาหาร"}, http.StatusConflict},
		{"in flight", core.ErrInFlight, http.StatusConflict},
		{"adapter", &core.AdapterError{Op: "analyze slip", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"persistence", &core.PersistenceError{Op: "insert", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"no session", core.ErrNoSession, http.StatusUnauthorized},
		{"invalid token", errors.Join(auth.ErrInvalidToken, errors.New("expired")), http.StatusUnauthorized},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorBody_HidesInternals(t *testing.T) {
	err := &core.PersistenceError{Op: "insert", Err: errors.New("pq: password authentication failed")}
	body := errorBody(statusFor(err), err)
	if body.Error != "internal error" {
		t.Fatalf("500 body leaks detail: %q", body.Error)
	}

	vErr := core.NewValidationError("amount", "must be greater than zero")
	body = errorBody(statusFor(vErr), vErr)
	if body.Field != "amount" || body.Error != "must be greater than zero" {
		t.Fatalf("validation body = %+v", body)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  อาหาร  ", "อาหาร"},
		{"line\x00break\x07", "linebreak"},
		{"tab\there", "tab\there"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGoalRequest_Deadline(t *testing.T) {
	bkk, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	g := goalRequest{Name: " car ", Type: "saving", TargetAmount: core.NewMoney(10), Deadline: "2027-03-01"}.goal(bkk)
	if g.Name != "car" || g.Deadline == nil {
		t.Fatalf("goal = %+v", g)
	}
	if g.Deadline.Location() != bkk || g.Deadline.Day() != 1 {
		t.Fatalf("deadline = %v", g.Deadline)
	}

	g = goalRequest{Name: "car", Type: "saving", TargetAmount: core.NewMoney(10)}.goal(bkk)
	if g.Deadline != nil {
		t.Fatalf("empty deadline parsed as %v", g.Deadline)
	}
}
