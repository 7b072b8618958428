package charts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotproduct/internal/api"
	"dotproduct/internal/core"
)

func usd(f float64) core.Money { return core.FromFloat(f) }

func TestFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"currency", Currency(1234.56), "$1,234.56"},
		{"currency pads cents", Currency(42.5), "$42.50"},
		{"negative currency", Currency(-3.1), "-$3.10"},
		{"whole currency rounds", WholeCurrency(1234.56), "$1,235"},
		{"money", Money(core.Money{Cents: 4250}), "$42.50"},
		{"compact zero", Compact(0), "$0"},
		{"compact small", Compact(500), "$500"},
		{"compact fraction", Compact(12.34), "$12.3"},
		{"compact thousands", Compact(1200), "$1.2K"},
		{"compact negative", Compact(-1500), "-$1.5K"},
		{"compact exact thousand", Compact(1000), "$1K"},
		{"compact millions", Compact(3_400_000), "$3.4M"},
		{"compact billions", Compact(2_500_000_000), "$2.5B"},
		{"compact rounds into next unit", Compact(999_960), "$1M"},
		{"percent", Percent(0.755), "76%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLinear_NiceAndTicks(t *testing.T) {
	s := Linear{D0: -1250, D1: 1250, R0: 100, R1: 0}.Nice(10)
	assert.Equal(t, -1400.0, s.D0)
	assert.Equal(t, 1400.0, s.D1)
	assert.Equal(t, []float64{-1000, -500, 0, 500, 1000}, s.Ticks(6))
	assert.InDelta(t, 50, s.Scale(0), 1e-9)

	assert.Equal(t, []float64{0, 0.2, 0.4, 0.6, 0.8, 1}, ticks(0, 1, 5))
	assert.Equal(t, []float64{3}, ticks(3, 3, 6))

	degenerate := Linear{R0: 284, R1: 0}.Nice(10)
	assert.Equal(t, 0.0, degenerate.D0)
	assert.Equal(t, 142.0, degenerate.Scale(0))
}

func TestBand(t *testing.T) {
	b := NewBand(3, 0, 300, 0.25)
	step := 300 / 3.25
	assert.InDelta(t, (300-step*2.75)/2, b.X(0), 1e-9)
	assert.InDelta(t, b.X(0)+step, b.X(1), 1e-9)
	assert.InDelta(t, step*0.75, b.Bandwidth(), 1e-9)
}

func TestBudgetData_MonthlyOnly(t *testing.T) {
	items := []core.BudgetStatusItem{
		{Category: "Groceries", BudgetedAmount: usd(100), ActualAmount: usd(80), Period: "Weekly"},
		{Category: "Groceries", BudgetedAmount: usd(400), ActualAmount: usd(450), Period: "Monthly"},
		{Category: "", BudgetedAmount: usd(50), ActualAmount: usd(-5), Period: "MONTHLY"},
		{Category: "Travel", BudgetedAmount: usd(1000), ActualAmount: usd(0), Period: "Yearly"},
	}

	data := BudgetData(items)
	require.Len(t, data, 2)

	assert.Equal(t, "Groceries", data[0].Category)
	assert.Equal(t, int64(-5000), data[0].Remaining.Cents)
	assert.True(t, data[0].Over())

	assert.Equal(t, UnknownCategory, data[1].Category)
	assert.Equal(t, int64(5500), data[1].Remaining.Cents, "remaining uses raw amounts")
	assert.Equal(t, int64(0), data[1].Actual.Cents, "displayed actual is clamped at zero")
}

func TestBudgetDatum_Tooltip(t *testing.T) {
	over := BudgetDatum{Category: "Food", Remaining: usd(-50), Budget: usd(200), Actual: usd(250)}
	assert.Equal(t, "Food: Over $50\nBudget: $200 • Actual: $250", over.Tooltip())

	under := BudgetDatum{Category: "Rent", Remaining: usd(10.4), Budget: usd(1000), Actual: usd(989.6)}
	assert.Equal(t, "Rent: Remaining $10\nBudget: $1,000 • Actual: $990", under.Tooltip())
}

func TestUtilize(t *testing.T) {
	t.Run("under budget", func(t *testing.T) {
		u := Utilize([]core.BudgetStatusItem{
			{BudgetedAmount: usd(500), ActualAmount: usd(400), Period: "Monthly"},
			{BudgetedAmount: usd(300), ActualAmount: usd(200), Period: "Monthly"},
			{BudgetedAmount: usd(1000), ActualAmount: usd(1000), Period: "Weekly"},
		})
		assert.Equal(t, int64(80000), u.TotalBudget.Cents)
		assert.Equal(t, int64(60000), u.TotalActual.Cents)
		assert.Equal(t, int64(20000), u.Remaining.Cents)
		assert.InDelta(t, 0.75, u.Ratio, 1e-9)
		assert.InDelta(t, 270, u.SweepDegrees(), 1e-9)
		assert.Equal(t, ColorPositive, u.Color())
		assert.Equal(t, "$600 / $800", u.Headline())
		assert.Equal(t, "75% used • $200 left", u.Caption())
	})

	t.Run("warning band", func(t *testing.T) {
		u := Utilize([]core.BudgetStatusItem{{BudgetedAmount: usd(100), ActualAmount: usd(90), Period: "Monthly"}})
		assert.Equal(t, ColorWarning, u.Color())
	})

	t.Run("over budget", func(t *testing.T) {
		u := Utilize([]core.BudgetStatusItem{{BudgetedAmount: usd(100), ActualAmount: usd(150), Period: "Monthly"}})
		assert.InDelta(t, 1.5, u.Ratio, 1e-9)
		assert.Equal(t, 1.0, u.Clamped())
		assert.Equal(t, 360.0, u.SweepDegrees())
		assert.Equal(t, int64(0), u.Remaining.Cents)
		assert.Equal(t, ColorNegative, u.Color())
		assert.Equal(t, "100% used • $0 left", u.Caption())
	})

	t.Run("no monthly budget", func(t *testing.T) {
		u := Utilize([]core.BudgetStatusItem{{BudgetedAmount: usd(100), ActualAmount: usd(50), Period: "Weekly"}})
		assert.Equal(t, 0.0, u.Ratio)
		assert.False(t, u.HasBudget())
		assert.Equal(t, "No monthly budget", u.Caption())
		assert.Equal(t, "$0 / $0", u.Headline())
	})
}

func TestLayoutBars(t *testing.T) {
	data := []BudgetDatum{
		{Category: "Food", Remaining: usd(100)},
		{Category: "Fun", Remaining: usd(-50)},
	}
	c := LayoutBars(data, BarChartWidth, BarChartHeight)

	assert.Equal(t, 780.0, c.InnerWidth)
	assert.Equal(t, 284.0, c.InnerHeight)
	assert.Equal(t, [2]float64{-100, 100}, c.Domain)
	assert.Equal(t, 142.0, c.ZeroY)

	require.Len(t, c.Bars, 2)
	assert.InDelta(t, 0, c.Bars[0].Y, 1e-9)
	assert.InDelta(t, 142, c.Bars[0].Height, 1e-9)
	assert.Equal(t, ColorPositive, c.Bars[0].Fill)
	assert.InDelta(t, 142, c.Bars[1].Y, 1e-9)
	assert.InDelta(t, 71, c.Bars[1].Height, 1e-9)
	assert.Equal(t, ColorNegative, c.Bars[1].Fill)

	labels := make([]string, 0, len(c.Ticks))
	for _, tk := range c.Ticks {
		labels = append(labels, tk.Label)
	}
	assert.Equal(t, []string{"-$100", "-$50", "$0", "$50", "$100"}, labels)
	assert.Equal(t, "0 0 860 360", c.ViewBox())
	assert.Equal(t, "translate(64,16)", c.Translate())
}

func TestLayoutBars_MinimumPlotSize(t *testing.T) {
	c := LayoutBars(nil, 100, 100)
	assert.Equal(t, 300.0, c.InnerWidth)
	assert.Equal(t, 150.0, c.InnerHeight)
	assert.Empty(t, c.Bars)
}

func TestLayoutGauge(t *testing.T) {
	quarter := LayoutGauge(Utilization{TotalBudget: usd(100), TotalActual: usd(25), Ratio: 0.25}, GaugeWidth, GaugeHeight)
	assert.Equal(t, 148.0, quarter.Radius)
	assert.Equal(t, "translate(260,160)", quarter.Translate())
	assert.Equal(t, "M-148,0A148,148,0,0,1,0,-148L0,-103.6A103.6,103.6,0,0,0,-103.6,0Z", quarter.ProgressPath)
	assert.True(t, strings.HasPrefix(quarter.TrackPath, "M-148,0A148,148,0,1,1,148,0"))
	assert.Equal(t, 2, strings.Count(quarter.TrackPath, "M"), "full ring cuts the inner hole")

	empty := LayoutGauge(Utilization{}, GaugeWidth, GaugeHeight)
	assert.Empty(t, empty.ProgressPath)
	assert.NotEmpty(t, empty.TrackPath)

	full := LayoutGauge(Utilization{TotalBudget: usd(1), TotalActual: usd(2), Ratio: 2}, GaugeWidth, GaugeHeight)
	assert.Equal(t, full.TrackPath, full.ProgressPath)
	assert.Equal(t, ColorNegative, full.Color)
}

func TestCategoryRows(t *testing.T) {
	rows := CategoryRows([]core.CategorySummaryItem{
		{CategoryName: "Salary", Type: core.Income, Total: usd(3000)},
		{CategoryName: "Rent", Type: core.Expense, Total: usd(1200)},
		{CategoryName: "", Type: core.Expense, Total: usd(10)},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, 100, rows[0].Width)
	assert.Equal(t, 100, rows[1].Width)
	assert.Equal(t, core.UncategorizedLabel, rows[2].Name)
	assert.Equal(t, 2, rows[2].Width, "tiny shares stay visible")
	assert.Equal(t, "$1,200.00", rows[1].Total)
}

type stubSource struct {
	items      []core.BudgetStatusItem
	summary    core.FinancialSummary
	categories []core.CategorySummaryItem
	budgetErr  error
	summaryErr error
}

func (s stubSource) BudgetStatus(context.Context, api.Tokens) ([]core.BudgetStatusItem, error) {
	return s.items, s.budgetErr
}

func (s stubSource) FinancialSummary(context.Context, api.Tokens) (core.FinancialSummary, error) {
	return s.summary, s.summaryErr
}

func (s stubSource) CategorySummary(context.Context, api.Tokens) ([]core.CategorySummaryItem, error) {
	return s.categories, nil
}

func TestLoader_Budget(t *testing.T) {
	ctx := context.Background()

	l := NewLoader(stubSource{items: []core.BudgetStatusItem{{Category: "Food", BudgetedAmount: usd(10), Period: "Weekly"}}}, nil)
	v, err := l.Budget(ctx, api.Tokens{})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, v.Status)
	assert.Equal(t, MsgNoBudgets, v.Message)

	l = NewLoader(stubSource{items: []core.BudgetStatusItem{{Category: "Food", BudgetedAmount: usd(10), Period: "Monthly"}}}, nil)
	v, err = l.Budget(ctx, api.Tokens{})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, v.Status)
	assert.Len(t, v.Chart.Bars, 1)

	boom := errors.New("boom")
	l = NewLoader(stubSource{budgetErr: boom}, nil)
	v, err = l.Budget(ctx, api.Tokens{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, v.Status)
	assert.Equal(t, MsgBudgetFailed, v.Message)
}

func TestLoader_Summary(t *testing.T) {
	ctx := context.Background()
	src := stubSource{
		items:   []core.BudgetStatusItem{{BudgetedAmount: usd(200), ActualAmount: usd(50), Period: "Monthly"}},
		summary: core.FinancialSummary{TotalIncome: usd(5000), TotalExpenses: usd(1234.5), Balance: usd(3765.5)},
	}

	v, err := NewLoader(src, nil).Summary(ctx, api.Tokens{})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, v.Status)
	assert.Equal(t, "$50 / $200", v.Gauge.Headline)
	assert.Equal(t, "25% used • $150 left", v.Gauge.Caption)
	require.Len(t, v.KPIs, 3)
	assert.Equal(t, KPI{Label: "Total Income", Value: "$5,000", Class: "kpi-success"}, v.KPIs[0])
	assert.Equal(t, "Total Expenses", v.KPIs[1].Label)
	assert.Equal(t, "Balance", v.KPIs[2].Label)

	src.summaryErr = api.ErrUnauthorized
	v, err = NewLoader(src, nil).Summary(ctx, api.Tokens{})
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, StatusError, v.Status)
	assert.Equal(t, MsgSummaryFailed, v.Message)
}

func TestLoader_Categories(t *testing.T) {
	v, err := NewLoader(stubSource{}, nil).Categories(context.Background(), api.Tokens{})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, v.Status)

	v, err = NewLoader(stubSource{categories: []core.CategorySummaryItem{{CategoryName: "Rent", Type: core.Expense, Total: usd(5)}}}, nil).
		Categories(context.Background(), api.Tokens{})
	require.NoError(t, err)
	assert.Len(t, v.Rows, 1)
}
