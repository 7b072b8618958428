package charts

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dotproduct/internal/api"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
)

// Placeholder and failure messages shown in place of a chart.
const (
	MsgLoadingBudget   = "Loading budget…"
	MsgLoadingSummary  = "Loading summary…"
	MsgBudgetFailed    = "Failed to load budget status"
	MsgSummaryFailed   = "Failed to load financial summary"
	MsgNoBudgets       = "No monthly budgets found."
	MsgCategoriesEmpty = "No transactions yet."
	MsgCategoriesError = "Failed to load category summary"
)

// Status tells the template which of the chart states to draw.
type Status int

const (
	StatusReady Status = iota
	StatusEmpty
	StatusError
)

func (s Status) Ready() bool { return s == StatusReady }

func (s Status) Empty() bool { return s == StatusEmpty }

func (s Status) Failed() bool { return s == StatusError }

// Source is the subset of the REST gateway the charts read from.
type Source interface {
	BudgetStatus(ctx context.Context, tokens api.Tokens) ([]core.BudgetStatusItem, error)
	FinancialSummary(ctx context.Context, tokens api.Tokens) (core.FinancialSummary, error)
	CategorySummary(ctx context.Context, tokens api.Tokens) ([]core.CategorySummaryItem, error)
}

// BudgetView is the budget-vs-actual partial.
type BudgetView struct {
	Status  Status
	Message string
	Chart   BarChart
}

// KPI is one headline figure beside the gauge.
type KPI struct {
	Label string
	Value string
	Class string
}

// SummaryView is the utilization gauge partial.
type SummaryView struct {
	Status  Status
	Message string
	Gauge   Gauge
	KPIs    []KPI
}

// CategoriesView is the spending-by-category partial.
type CategoriesView struct {
	Status  Status
	Message string
	Rows    []CategoryRow
}

// Loader fetches aggregates and derives the chart views. Each call fetches
// fresh data; nothing is shared between renders.
type Loader struct {
	source Source
	logger *log.Logger
}

func NewLoader(source Source, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Loader{source: source, logger: logger.WithComponent(log.ComponentCharts)}
}

// Budget renders the budget-vs-actual view. On failure the view carries the
// failure message and the error is returned for the caller's error handling.
func (l *Loader) Budget(ctx context.Context, tokens api.Tokens) (BudgetView, error) {
	items, err := l.source.BudgetStatus(ctx, tokens)
	if err != nil {
		l.logger.ErrorContext(ctx, "Budget status fetch failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		return BudgetView{Status: StatusError, Message: MsgBudgetFailed}, fmt.Errorf("load budget status: %w", err)
	}

	data := BudgetData(items)
	if len(data) == 0 {
		return BudgetView{Status: StatusEmpty, Message: MsgNoBudgets}, nil
	}
	return BudgetView{Status: StatusReady, Chart: LayoutBars(data, BarChartWidth, BarChartHeight)}, nil
}

// Summary renders the utilization gauge. Budget status and the financial
// summary are fetched concurrently; either failing fails the view.
func (l *Loader) Summary(ctx context.Context, tokens api.Tokens) (SummaryView, error) {
	var (
		items   []core.BudgetStatusItem
		summary core.FinancialSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = l.source.BudgetStatus(gctx, tokens)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = l.source.FinancialSummary(gctx, tokens)
		return err
	})
	if err := g.Wait(); err != nil {
		l.logger.ErrorContext(ctx, "Financial summary fetch failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		return SummaryView{Status: StatusError, Message: MsgSummaryFailed}, fmt.Errorf("load financial summary: %w", err)
	}

	u := Utilize(items)
	return SummaryView{
		Status: StatusReady,
		Gauge:  LayoutGauge(u, GaugeWidth, GaugeHeight),
		KPIs: []KPI{
			{Label: "Total Income", Value: WholeCurrency(summary.TotalIncome.Float()), Class: "kpi-success"},
			{Label: "Total Expenses", Value: WholeCurrency(summary.TotalExpenses.Float()), Class: "kpi-danger"},
			{Label: "Balance", Value: WholeCurrency(summary.Balance.Float()), Class: "kpi-info"},
		},
	}, nil
}

// Categories renders the spending-by-category table.
func (l *Loader) Categories(ctx context.Context, tokens api.Tokens) (CategoriesView, error) {
	items, err := l.source.CategorySummary(ctx, tokens)
	if err != nil {
		l.logger.ErrorContext(ctx, "Category summary fetch failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		return CategoriesView{Status: StatusError, Message: MsgCategoriesError}, fmt.Errorf("load category summary: %w", err)
	}
	rows := CategoryRows(items)
	if len(rows) == 0 {
		return CategoriesView{Status: StatusEmpty, Message: MsgCategoriesEmpty}, nil
	}
	return CategoriesView{Status: StatusReady, Rows: rows}, nil
}
