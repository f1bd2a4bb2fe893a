// Package report derives windowed and filtered views of a transaction log:
// totals, budget utilization, category breakdown and a daily series.
package report

import (
	"fmt"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
)

type Window string

const (
	ThisWeek  Window = "thisWeek"
	ThisMonth Window = "thisMonth"
	AllTime   Window = "allTime"
)

// ParseWindow parses a window key. An empty key means ThisMonth.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "":
		return ThisMonth, nil
	case ThisWeek, ThisMonth, AllTime:
		return Window(s), nil
	}
	return "", core.NewValidationError("window", fmt.Sprintf("unknown window %q: must be thisWeek, thisMonth or allTime", s))
}

// Range is an inclusive [Start, End] interval. Unbounded matches every time.
type Range struct {
	Start     time.Time `json:"start,omitzero"`
	End       time.Time `json:"end,omitzero"`
	Unbounded bool      `json:"unbounded"`
}

func (r Range) Contains(t time.Time) bool {
	if r.Unbounded {
		return true
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// WindowRange computes the range of w around now, in now's location.
// Weeks run Sunday 00:00:00.000 through Saturday 23:59:59.999.
func WindowRange(w Window, now time.Time) Range {
	loc := now.Location()
	y, m, d := now.Date()
	startOfToday := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch w {
	case ThisWeek:
		start := startOfToday.AddDate(0, 0, -int(now.Weekday()))
		return Range{Start: start, End: endOfDay(start.AddDate(0, 0, 6))}
	case ThisMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: endOfDay(start.AddDate(0, 1, -1))}
	default:
		return Range{Unbounded: true}
	}
}

func endOfDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), day.Location())
}

// TypeFilter narrows a view to one transaction type. "all" keeps both.
type TypeFilter string

const (
	AllTypes    TypeFilter = "all"
	IncomeOnly  TypeFilter = "income"
	ExpenseOnly TypeFilter = "expense"
)

// ParseTypeFilter parses a type filter. An empty value means AllTypes.
func ParseTypeFilter(s string) (TypeFilter, error) {
	switch TypeFilter(s) {
	case "":
		return AllTypes, nil
	case AllTypes, IncomeOnly, ExpenseOnly:
		return TypeFilter(s), nil
	}
	return "", core.NewValidationError("type", fmt.Sprintf("unknown type filter %q: must be all, income or expense", s))
}

// FilterByWindow keeps transactions whose createdAt lies in r.
func FilterByWindow(txs []core.Transaction, r Range) []core.Transaction {
	if r.Unbounded {
		return append(make([]core.Transaction, 0, len(txs)), txs...)
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if r.Contains(t.CreatedAt) {
			out = append(out, t)
		}
	}
	return out
}

func FilterByType(txs []core.Transaction, f TypeFilter) []core.Transaction {
	if f == AllTypes || f == "" {
		return append(make([]core.Transaction, 0, len(txs)), txs...)
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if string(t.Type) == string(f) {
			out = append(out, t)
		}
	}
	return out
}
