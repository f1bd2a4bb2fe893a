package validator

import (
	"errors"
	"testing"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
)

type sample struct {
	Type     string     `json:"type" validate:"txtype"`
	Category string     `json:"category" validate:"notblank,max=100"`
	Amount   core.Money `json:"amount" validate:"gt=0"`
	Goal     string     `json:"goal_type" validate:"omitempty,goaltype"`
	Window   string     `json:"window" validate:"window"`
}

func TestStruct(t *testing.T) {
	valid := sample{Type: "expense", Category: "อาหาร", Amount: core.NewMoney(10), Window: "thisWeek"}

	tests := []struct {
		name      string
		mutate    func(*sample)
		wantField string
	}{
		{"valid", func(*sample) {}, ""},
		{"bad type", func(s *sample) { s.Type = "transfer" }, "type"},
		{"blank category", func(s *sample) { s.Category = "   " }, "category"},
		{"zero amount", func(s *sample) { s.Amount = core.Zero }, "amount"},
		{"bad goal type", func(s *sample) { s.Goal = "loan" }, "goal_type"},
		{"bad window", func(s *sample) { s.Window = "lastYear" }, "window"},
		{"empty window", func(s *sample) { s.Window = "" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := Struct(s)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Fatalf("field = %q, want %q (%v)", ve.Field, tt.wantField, err)
			}
		})
	}
}
