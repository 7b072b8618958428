package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotproduct/internal/api/apitest"
	"dotproduct/internal/core"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example.com/api"}, nil)
	assert.Error(t, err)
}

func TestLogin_ReturnsUserAndTokens(t *testing.T) {
	backend := apitest.New(t)
	user := backend.AddUser("alice", "secret")
	c := newTestClient(t, backend.URL())

	res, err := c.Login(context.Background(), core.Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.Tokens.SessionID)
	assert.Equal(t, "csrf-"+res.Tokens.SessionID, res.Tokens.CSRFToken)
}

func TestLogin_InvalidCredentialsDoesNotFireUnauthorizedHook(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	c := newTestClient(t, backend.URL())

	var fired atomic.Int32
	c.OnUnauthorized(func(context.Context) { fired.Add(1) })

	_, err := c.Login(context.Background(), core.Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Invalid credentials", DetailOf(err, "Login failed"))
	assert.Equal(t, int32(0), fired.Load())
}

func TestUnauthorized_FiresHookWithCallerContext(t *testing.T) {
	backend := apitest.New(t)
	c := newTestClient(t, backend.URL())

	type ctxKey struct{}
	var seen atomic.Value
	c.OnUnauthorized(func(ctx context.Context) { seen.Store(ctx.Value(ctxKey{})) })

	ctx := context.WithValue(context.Background(), ctxKey{}, "browser-1")
	_, err := c.ListTransactions(ctx, Tokens{SessionID: "stale"}, TransactionQuery{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "browser-1", seen.Load())
}

func TestMutations_CarryCSRFHeaderAndCookies(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	sid := backend.IssueSession("alice")
	c := newTestClient(t, backend.URL())
	tokens := Tokens{SessionID: sid, CSRFToken: "tok"}

	in, err := core.TransactionForm{Amount: "42.50", Date: "2025-01-02", Type: "expense"}.Parse()
	require.NoError(t, err)
	tx, err := c.CreateTransaction(context.Background(), tokens, in)
	require.NoError(t, err)
	assert.Equal(t, int64(4250), tx.Amount.Cents)

	_, err = c.ListTransactions(context.Background(), tokens, TransactionQuery{})
	require.NoError(t, err)

	posts := backend.RequestsTo(http.MethodPost, "/transactions/")
	require.Len(t, posts, 1)
	assert.Equal(t, "tok", posts[0].CSRF)
	assert.Equal(t, sid, posts[0].SessionID)
	assert.Contains(t, posts[0].Body, `"amount":42.5`)

	gets := backend.RequestsTo(http.MethodGet, "/transactions/")
	require.Len(t, gets, 1)
	assert.Empty(t, gets[0].CSRF, "reads must not carry the anti-forgery header")
}

func TestMutation_WithoutCSRFIsRejected(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	sid := backend.IssueSession("alice")
	c := newTestClient(t, backend.URL())

	err := c.DeleteTransaction(context.Background(), Tokens{SessionID: sid}, 1)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestBudgets_CreateListUpdateDelete(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	sid := backend.IssueSession("alice")
	food := backend.AddCategory("Food", core.Expense)
	rent := backend.AddCategory("Rent", core.Expense)
	c := newTestClient(t, backend.URL())
	tokens := Tokens{SessionID: sid, CSRFToken: "tok"}
	ctx := context.Background()

	created, err := c.CreateBudget(ctx, tokens, core.BudgetInput{Category: food.ID, Amount: core.Money{Cents: 20000}, Period: core.Monthly})
	require.NoError(t, err)

	budgets, err := c.ListBudgets(ctx, tokens)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, created.ID, budgets[0].ID)
	assert.Equal(t, "Food", budgets[0].CategoryName)

	updated, err := c.UpdateBudget(ctx, tokens, created.ID, core.BudgetInput{Category: rent.ID, Amount: core.Money{Cents: 90000}, Period: core.Yearly})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, int64(90000), updated.Amount.Cents)
	assert.Equal(t, core.Yearly, updated.Period)
	assert.Equal(t, "Rent", updated.CategoryName)

	require.NoError(t, c.DeleteBudget(ctx, tokens, created.ID))
	budgets, err = c.ListBudgets(ctx, tokens)
	require.NoError(t, err)
	assert.Empty(t, budgets)

	path := fmt.Sprintf("/budgets/%d/", created.ID)
	puts := backend.RequestsTo(http.MethodPut, path)
	require.Len(t, puts, 1)
	assert.Equal(t, "tok", puts[0].CSRF)
	assert.Contains(t, puts[0].Body, `"period":"yearly"`)

	deletes := backend.RequestsTo(http.MethodDelete, path)
	require.Len(t, deletes, 1)
	assert.Equal(t, "tok", deletes[0].CSRF)

	var apiErr *Error
	err = c.DeleteBudget(ctx, tokens, created.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestListTransactions_SendsServerSideFiltersOnly(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	sid := backend.IssueSession("alice")
	c := newTestClient(t, backend.URL())

	start, _ := core.ParseDate("2025-01-01")
	_, err := c.ListTransactions(context.Background(), Tokens{SessionID: sid}, TransactionQuery{
		Type:       core.Income,
		CategoryID: 7,
		StartDate:  start,
	})
	require.NoError(t, err)

	reqs := backend.RequestsTo(http.MethodGet, "/transactions/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "category=7&start_date=2025-01-01&type=income", reqs[0].Query)
}

func TestListEndpoints_AcceptBothEnvelopes(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	sid := backend.IssueSession("alice")
	backend.AddCategory("Salary", core.Income)
	backend.AddCategory("Food", core.Expense)
	c := newTestClient(t, backend.URL())
	tokens := Tokens{SessionID: sid}

	for _, wrapped := range []bool{false, true} {
		backend.WrapLists(wrapped)
		cats, err := c.ListCategories(context.Background(), tokens, "")
		require.NoError(t, err)
		assert.Len(t, cats, 2, "wrapped=%v", wrapped)
	}
}

func TestListCategories_FiltersByType(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	sid := backend.IssueSession("alice")
	backend.AddCategory("Salary", core.Income)
	backend.AddCategory("Food", core.Expense)
	c := newTestClient(t, backend.URL())

	cats, err := c.ListCategories(context.Background(), Tokens{SessionID: sid}, core.Expense)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Name)
}

func TestAggregates(t *testing.T) {
	backend := apitest.New(t)
	backend.AddUser("alice", "secret")
	sid := backend.IssueSession("alice")
	food := backend.AddCategory("Food", core.Expense)
	backend.AddTransaction(core.Transaction{Category: &food.ID, Amount: core.Money{Cents: 1250}, Type: core.Expense, Date: core.NewDate(2025, 1, 1)})
	backend.AddTransaction(core.Transaction{Amount: core.Money{Cents: 10000}, Type: core.Income, Date: core.NewDate(2025, 1, 2)})
	backend.SetBudgetStatus([]core.BudgetStatusItem{{Category: "Food", BudgetedAmount: core.Money{Cents: 5000}, ActualAmount: core.Money{Cents: 1250}, Remaining: core.Money{Cents: 3750}, Period: "Monthly"}})
	c := newTestClient(t, backend.URL())
	tokens := Tokens{SessionID: sid}

	summary, err := c.FinancialSummary(context.Background(), tokens)
	require.NoError(t, err)
	assert.Equal(t, int64(8750), summary.Balance.Cents)

	status, err := c.BudgetStatus(context.Background(), tokens)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "Monthly", status[0].Period)

	cats, err := c.CategorySummary(context.Background(), tokens)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Uncategorized", cats[0].Label())
}

func TestFieldErrorsAreFlattened(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"date":["Date has wrong format."],"amount":["A valid number is required."]}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.CreateBudget(context.Background(), Tokens{SessionID: "s", CSRFToken: "t"}, core.BudgetInput{})
	assert.Equal(t, "amount: A valid number is required.; date: Date has wrong format.", DetailOf(err, "Failed to create budget"))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := newTestClient(t, url)

	err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, "Failed to load", DetailOf(err, "Failed to load"))
}

func TestHealth(t *testing.T) {
	backend := apitest.New(t)
	c := newTestClient(t, backend.URL())
	assert.NoError(t, c.Health(context.Background()))
	assert.Len(t, backend.RequestsTo(http.MethodGet, "/health/"), 1)
}

func TestLogin_FallsBackToCSRFCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s1"})
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "c1"})
		_, _ = w.Write([]byte(`{"detail":"Login successful","user":{"id":1,"username":"bob"}}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	res, err := c.Login(context.Background(), core.Credentials{Username: "bob", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, Tokens{SessionID: "s1", CSRFToken: "c1"}, res.Tokens)
	assert.True(t, strings.EqualFold("bob", res.User.Username))
}
