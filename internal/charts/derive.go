package charts

import (
	"math"

	"dotproduct/internal/core"
)

// UnknownCategory labels budget rows without a category name.
const UnknownCategory = "Unknown"

// Colors shared by both visualizations.
const (
	ColorPositive = "#34d399"
	ColorWarning  = "#fbbf24"
	ColorNegative = "#f87171"
	ColorTrack    = "#e5e7eb"
	ColorZeroLine = "#9ca3af"
	ColorAxisText = "#374151"
)

// MonthlyOnly keeps the budget-status rows whose period is monthly.
func MonthlyOnly(items []core.BudgetStatusItem) []core.BudgetStatusItem {
	out := make([]core.BudgetStatusItem, 0, len(items))
	for _, it := range items {
		if it.IsMonthly() {
			out = append(out, it)
		}
	}
	return out
}

// BudgetDatum is one category's position against its monthly budget.
// Remaining is signed: negative means overspent.
type BudgetDatum struct {
	Category  string
	Remaining core.Money
	Budget    core.Money
	Actual    core.Money
}

// Over reports whether actual spend exceeded the budget.
func (d BudgetDatum) Over() bool {
	return d.Remaining.Cents < 0
}

// Tooltip is the hover text for the datum's bar.
func (d BudgetDatum) Tooltip() string {
	label := "Remaining"
	if d.Over() {
		label = "Over"
	}
	return d.Category + ": " + label + " " + WholeCurrency(math.Abs(d.Remaining.Float())) + "\n" +
		"Budget: " + WholeCurrency(d.Budget.Float()) + " • Actual: " + WholeCurrency(d.Actual.Float())
}

// BudgetData derives the per-category series for the budget-vs-actual chart
// from monthly rows only.
func BudgetData(items []core.BudgetStatusItem) []BudgetDatum {
	monthly := MonthlyOnly(items)
	out := make([]BudgetDatum, 0, len(monthly))
	for _, it := range monthly {
		name := it.Category
		if name == "" {
			name = UnknownCategory
		}
		out = append(out, BudgetDatum{
			Category:  name,
			Remaining: it.BudgetedAmount.Sub(it.ActualAmount),
			Budget:    nonNegative(it.BudgetedAmount),
			Actual:    nonNegative(it.ActualAmount),
		})
	}
	return out
}

func nonNegative(m core.Money) core.Money {
	if m.Cents < 0 {
		return core.Money{}
	}
	return m
}

// Utilization aggregates monthly budgets into a single spend ratio.
type Utilization struct {
	TotalBudget core.Money
	TotalActual core.Money
	Remaining   core.Money
	// Ratio is TotalActual/TotalBudget, or 0 without a budget.
	Ratio float64
}

// Utilize totals the monthly rows of items.
func Utilize(items []core.BudgetStatusItem) Utilization {
	var u Utilization
	for _, it := range MonthlyOnly(items) {
		u.TotalBudget = u.TotalBudget.Add(it.BudgetedAmount)
		u.TotalActual = u.TotalActual.Add(it.ActualAmount)
	}
	u.Remaining = nonNegative(u.TotalBudget.Sub(u.TotalActual))
	if u.TotalBudget.Cents > 0 {
		u.Ratio = float64(u.TotalActual.Cents) / float64(u.TotalBudget.Cents)
	}
	return u
}

func (u Utilization) HasBudget() bool {
	return u.TotalBudget.Cents > 0
}

// Clamped is the ratio capped at 1, the share of the ring that is filled.
func (u Utilization) Clamped() float64 {
	return math.Min(u.Ratio, 1)
}

// SweepDegrees is the filled arc of the gauge.
func (u Utilization) SweepDegrees() float64 {
	return u.Clamped() * 360
}

// Color is green up to 80% of the budget, amber up to 100%, red beyond.
func (u Utilization) Color() string {
	switch {
	case u.Ratio <= 0.8:
		return ColorPositive
	case u.Ratio <= 1:
		return ColorWarning
	default:
		return ColorNegative
	}
}

// Headline is the gauge's main center label.
func (u Utilization) Headline() string {
	return WholeCurrency(u.TotalActual.Float()) + " / " + WholeCurrency(u.TotalBudget.Float())
}

// Caption is the gauge's secondary center label.
func (u Utilization) Caption() string {
	if !u.HasBudget() {
		return "No monthly budget"
	}
	return Percent(u.Clamped()) + " used • " + WholeCurrency(u.Remaining.Float()) + " left"
}
