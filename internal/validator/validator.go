// Package validator checks request payloads before they reach the ledger.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
)

var Validate *validator.Validate

var nonBlank = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json names in error messages
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Money compares as a number for gt/gte/lte
	Validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		if m, ok := v.Interface().(core.Money); ok {
			return m.Float64()
		}
		return nil
	}, core.Money{})

	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})
	_ = Validate.RegisterValidation("txtype", func(fl validator.FieldLevel) bool {
		return core.TransactionType(fl.Field().String()).IsValid()
	})
	_ = Validate.RegisterValidation("goaltype", func(fl validator.FieldLevel) bool {
		return core.GoalType(fl.Field().String()).IsValid()
	})
	_ = Validate.RegisterValidation("window", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "thisWeek", "thisMonth", "allTime":
			return true
		}
		return false
	})
}

// Struct validates v and converts the first failure into a
// *core.ValidationError.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &core.ValidationError{Message: err.Error(), Err: err}
	}
	e := errs[0]
	return &core.ValidationError{Field: e.Field(), Message: fieldErrorToString(e), Err: err}
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "txtype":
		return "must be income or expense"
	case "goaltype":
		return "must be saving or debt"
	case "window":
		return "must be thisWeek, thisMonth or allTime"
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}
