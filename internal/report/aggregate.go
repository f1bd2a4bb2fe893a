package report

import (
	"sort"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func ComputeTotals(txs []core.Transaction) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// Status is a budget utilization band.
type Status string

const (
	StatusNominal Status = "nominal"
	StatusWarning Status = "warning"
	StatusOver    Status = "over"
)

type BudgetStatus struct {
	Budget     core.Budget `json:"budget"`
	Spent      core.Money  `json:"spent"`
	Percentage float64     `json:"percentage"`
	Status     Status      `json:"status"`
	Overage    core.Money  `json:"overage"`
}

// Percentage returns spent/amount*100, or 0 when amount is zero.
func Percentage(spent, amount core.Money) float64 {
	if amount.IsZero() {
		return 0
	}
	return spent.Amount.Mul(hundred).DivRound(amount.Amount, 8).InexactFloat64()
}

func band(pct float64) Status {
	switch {
	case pct > 100:
		return StatusOver
	case pct > 80:
		return StatusWarning
	default:
		return StatusNominal
	}
}

// BudgetUtilization compares each budget with the expense spent in its
// category across txs. Budgets with no amount and no spend are left out.
func BudgetUtilization(budgets []core.Budget, txs []core.Transaction) []BudgetStatus {
	spent := make(map[string]core.Money)
	for _, t := range txs {
		if t.Type == core.Expense {
			spent[t.Category] = spent[t.Category].Add(t.Amount)
		}
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		s := spent[b.Category]
		if b.Amount.IsZero() && s.IsZero() {
			continue
		}
		pct := Percentage(s, b.Amount)
		st := BudgetStatus{Budget: b, Spent: s, Percentage: pct, Status: band(pct)}
		if st.Status == StatusOver {
			st.Overage = s.Sub(b.Amount)
		}
		out = append(out, st)
	}
	return out
}

// CategoryBreakdown sums expenses per category, largest first. Percentage
// is each category's share of total expense.
func CategoryBreakdown(txs []core.Transaction) []core.CategoryAmount {
	sums := make(map[string]core.Money)
	var total core.Money
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
		total = total.Add(t.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryAmount{Category: name, Amount: amount, Percentage: Percentage(amount, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// DailySeries sums income and expense per calendar day in loc, oldest day
// first.
func DailySeries(txs []core.Transaction, loc *time.Location) []core.DailyTotals {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]*core.DailyTotals)
	for _, t := range txs {
		key := t.CreatedAt.In(loc).Format(time.DateOnly)
		d, ok := days[key]
		if !ok {
			d = &core.DailyTotals{Date: key}
			days[key] = d
		}
		switch t.Type {
		case core.Income:
			d.Income = d.Income.Add(t.Amount)
		case core.Expense:
			d.Expense = d.Expense.Add(t.Amount)
		}
	}

	out := make([]core.DailyTotals, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
