package core

import "strings"

// FinancialSummary holds all-time totals for the current user.
type FinancialSummary struct {
	TotalIncome   Money `json:"total_income"`
	TotalExpenses Money `json:"total_expenses"`
	Balance       Money `json:"balance"`
}

// BudgetStatusItem is one budget with its spend since the budget start date.
// Period is the backend's display label, e.g. "Monthly".
type BudgetStatusItem struct {
	Category       string `json:"category"`
	BudgetedAmount Money  `json:"budgeted_amount"`
	ActualAmount   Money  `json:"actual_amount"`
	Remaining      Money  `json:"remaining"`
	Period         string `json:"period"`
}

// IsMonthly reports whether the period label names a monthly budget.
func (b BudgetStatusItem) IsMonthly() bool {
	return strings.Contains(strings.ToLower(b.Period), "month")
}

// CategorySummaryItem is a total grouped by category and transaction type.
// CategoryName is empty for uncategorized transactions.
type CategorySummaryItem struct {
	CategoryName string    `json:"category__name"`
	CategoryType EntryType `json:"category__type"`
	Type         EntryType `json:"type"`
	Total        Money     `json:"total"`
}

func (c CategorySummaryItem) Label() string {
	if c.CategoryName == "" {
		return UncategorizedLabel
	}
	return c.CategoryName
}
