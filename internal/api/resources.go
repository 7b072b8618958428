package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"dotproduct/internal/core"
)

// TransactionQuery holds the server-side transaction filters. Zero values
// are omitted.
type TransactionQuery struct {
	Type       core.EntryType
	CategoryID int64
	StartDate  core.Date
	EndDate    core.Date
}

func (q TransactionQuery) Values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.CategoryID > 0 {
		v.Set("category", strconv.FormatInt(q.CategoryID, 10))
	}
	if !q.StartDate.IsZero() {
		v.Set("start_date", q.StartDate.String())
	}
	if !q.EndDate.IsZero() {
		v.Set("end_date", q.EndDate.String())
	}
	return v
}

// ListCategories returns the user's categories, restricted to typ when set.
// The backend may ignore the type parameter, so results are filtered here too.
func (c *Client) ListCategories(ctx context.Context, tokens Tokens, typ core.EntryType) ([]core.Category, error) {
	query := url.Values{}
	if typ != "" {
		query.Set("type", string(typ))
	}
	items, err := list[core.Category](ctx, c, "/categories/", query, tokens)
	if err != nil || typ == "" {
		return items, err
	}
	filtered := items[:0]
	for _, cat := range items {
		if cat.Type == typ {
			filtered = append(filtered, cat)
		}
	}
	return filtered, nil
}

func (c *Client) CreateCategory(ctx context.Context, tokens Tokens, in core.CategoryInput) (core.Category, error) {
	var cat core.Category
	_, err := c.call(ctx, request{method: http.MethodPost, path: "/categories/", tokens: tokens, body: in}, &cat)
	return cat, err
}

func (c *Client) ListTransactions(ctx context.Context, tokens Tokens, q TransactionQuery) ([]core.Transaction, error) {
	return list[core.Transaction](ctx, c, "/transactions/", q.Values(), tokens)
}

func (c *Client) GetTransaction(ctx context.Context, tokens Tokens, id int64) (core.Transaction, error) {
	var tx core.Transaction
	_, err := c.call(ctx, request{method: http.MethodGet, path: transactionPath(id), tokens: tokens}, &tx)
	return tx, err
}

func (c *Client) CreateTransaction(ctx context.Context, tokens Tokens, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	_, err := c.call(ctx, request{method: http.MethodPost, path: "/transactions/", tokens: tokens, body: in}, &tx)
	return tx, err
}

func (c *Client) UpdateTransaction(ctx context.Context, tokens Tokens, id int64, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	_, err := c.call(ctx, request{method: http.MethodPut, path: transactionPath(id), tokens: tokens, body: in}, &tx)
	return tx, err
}

func (c *Client) DeleteTransaction(ctx context.Context, tokens Tokens, id int64) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: transactionPath(id), tokens: tokens})
	return err
}

func (c *Client) ListBudgets(ctx context.Context, tokens Tokens) ([]core.Budget, error) {
	return list[core.Budget](ctx, c, "/budgets/", nil, tokens)
}

func (c *Client) CreateBudget(ctx context.Context, tokens Tokens, in core.BudgetInput) (core.Budget, error) {
	var b core.Budget
	_, err := c.call(ctx, request{method: http.MethodPost, path: "/budgets/", tokens: tokens, body: in}, &b)
	return b, err
}

func (c *Client) UpdateBudget(ctx context.Context, tokens Tokens, id int64, in core.BudgetInput) (core.Budget, error) {
	var b core.Budget
	_, err := c.call(ctx, request{method: http.MethodPut, path: budgetPath(id), tokens: tokens, body: in}, &b)
	return b, err
}

func (c *Client) DeleteBudget(ctx context.Context, tokens Tokens, id int64) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: budgetPath(id), tokens: tokens})
	return err
}

func (c *Client) FinancialSummary(ctx context.Context, tokens Tokens) (core.FinancialSummary, error) {
	var s core.FinancialSummary
	_, err := c.call(ctx, request{method: http.MethodGet, path: "/financial-summary/", tokens: tokens}, &s)
	return s, err
}

func (c *Client) CategorySummary(ctx context.Context, tokens Tokens) ([]core.CategorySummaryItem, error) {
	return list[core.CategorySummaryItem](ctx, c, "/category-summary/", nil, tokens)
}

func (c *Client) BudgetStatus(ctx context.Context, tokens Tokens) ([]core.BudgetStatusItem, error) {
	return list[core.BudgetStatusItem](ctx, c, "/budget-status/", nil, tokens)
}

func transactionPath(id int64) string { return fmt.Sprintf("/transactions/%d/", id) }

func budgetPath(id int64) string { return fmt.Sprintf("/budgets/%d/", id) }
