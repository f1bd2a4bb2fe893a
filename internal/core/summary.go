package core

// Totals aggregates a set of transactions.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Category   string  `json:"category"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// DailyTotals holds income and expense summed for one calendar day.
type DailyTotals struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// MonthlyTotals is the income/expense pair attached to a spending summary.
type MonthlyTotals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// SpendingSummary is the structured result of a spending analysis.
type SpendingSummary struct {
	Summary              string           `json:"summary"`
	TopExpenseCategories []CategoryAmount `json:"topExpenseCategories"`
	SavingsSuggestions   []string         `json:"savingsSuggestions"`
	MonthlyTotals        MonthlyTotals    `json:"monthlyTotals"`
}

// SlipGuess is the best-effort transaction extracted from a slip image.
type SlipGuess struct {
	Type     TransactionType `json:"type"`
	Category string          `json:"category"`
	Amount   Money           `json:"amount"`
	Note     string          `json:"note"`
}
