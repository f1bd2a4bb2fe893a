package report

import (
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
)

// Input is everything a dashboard is computed from.
type Input struct {
	Transactions []core.Transaction
	Budgets      []core.Budget
	Window       Window
	Type         TypeFilter
	Now          time.Time
}

// Dashboard is the derived view for one window and type filter.
//
// Totals and Transactions honor both the window and the type filter.
// Budgets, Breakdown and Daily use the window only: budget spend is always
// expense, and the charts show both sides.
type Dashboard struct {
	Window       Window                `json:"window"`
	Type         TypeFilter            `json:"type"`
	Range        Range                 `json:"range"`
	Totals       core.Totals           `json:"totals"`
	Transactions []core.Transaction    `json:"transactions"`
	Budgets      []BudgetStatus        `json:"budgets"`
	Breakdown    []core.CategoryAmount `json:"breakdown"`
	Daily        []core.DailyTotals    `json:"daily"`
}

func Build(in Input) Dashboard {
	if in.Window == "" {
		in.Window = ThisMonth
	}
	if in.Type == "" {
		in.Type = AllTypes
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	r := WindowRange(in.Window, in.Now)
	windowed := FilterByWindow(in.Transactions, r)
	filtered := FilterByType(windowed, in.Type)

	return Dashboard{
		Window:       in.Window,
		Type:         in.Type,
		Range:        r,
		Totals:       ComputeTotals(filtered),
		Transactions: filtered,
		Budgets:      BudgetUtilization(in.Budgets, windowed),
		Breakdown:    CategoryBreakdown(windowed),
		Daily:        DailySeries(windowed, in.Now.Location()),
	}
}

// MonthlyTotals recomputes the income/expense pair for a spending summary
// from the transactions themselves.
func MonthlyTotals(txs []core.Transaction) core.MonthlyTotals {
	t := ComputeTotals(txs)
	return core.MonthlyTotals{Income: t.Income, Expense: t.Expense}
}
