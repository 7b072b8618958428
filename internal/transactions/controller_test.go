package transactions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotproduct/internal/api"
	"dotproduct/internal/cache"
	"dotproduct/internal/core"
)

type stubLister struct {
	mu      sync.Mutex
	rows    []core.Transaction
	err     error
	queries []api.TransactionQuery
}

func (s *stubLister) ListTransactions(_ context.Context, _ api.Tokens, q api.TransactionQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	var out []core.Transaction
	for _, tx := range s.rows {
		if q.Type != "" && tx.Type != q.Type {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func makeRows(n int, typ core.EntryType, desc string) []core.Transaction {
	rows := make([]core.Transaction, n)
	for i := range rows {
		rows[i] = core.Transaction{
			ID:          int64(i + 1),
			Type:        typ,
			Description: fmt.Sprintf("%s %d", desc, i+1),
			Amount:      core.Money{Cents: 100},
		}
	}
	return rows
}

func TestLoad_PaginatesTenPerPage(t *testing.T) {
	lister := &stubLister{rows: makeRows(23, core.Expense, "Coffee")}
	c := NewController(lister)

	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{}))
	v := c.View()

	assert.Equal(t, 23, v.Total)
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 1, v.Page)
	assert.Len(t, v.Rows, 10)
	assert.Equal(t, 1, v.From)
	assert.Equal(t, 10, v.To)
	assert.False(t, v.HasPrev())
	assert.True(t, v.HasNext())

	c.SetPage(3)
	v = c.View()
	assert.Len(t, v.Rows, 3)
	assert.Equal(t, 21, v.From)
	assert.Equal(t, 23, v.To)
	assert.False(t, v.HasNext())

	// Page changes never hit the backend.
	assert.Len(t, lister.queries, 1)
}

func TestSetPage_Clamps(t *testing.T) {
	c := NewController(&stubLister{rows: makeRows(15, core.Expense, "x")})
	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{}))

	assert.Equal(t, 2, c.SetPage(99))
	assert.Equal(t, 1, c.SetPage(-4))
}

func TestEmptySet(t *testing.T) {
	c := NewController(&stubLister{})
	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{}))
	v := c.View()

	assert.Equal(t, 0, v.TotalPages)
	assert.Equal(t, 1, v.Page)
	assert.Empty(t, v.Rows)
	assert.NotNil(t, v.Rows)
	assert.Equal(t, 1, c.SetPage(5))
}

func TestFilterChange_ResetsPage(t *testing.T) {
	lister := &stubLister{rows: append(makeRows(30, core.Expense, "Lunch"), makeRows(12, core.Income, "Salary")...)}
	c := NewController(lister)
	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{}))
	c.SetPage(4)

	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{Type: core.Income}))
	v := c.View()
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 12, v.Total)
	assert.Equal(t, 2, v.TotalPages)
}

func TestSearch_IsLocalAndCaseInsensitive(t *testing.T) {
	food := int64(1)
	rows := []core.Transaction{
		{ID: 1, Type: core.Income, Description: "Monthly SALARY"},
		{ID: 2, Type: core.Income, Description: "Bonus", CategoryName: "Salary"},
		{ID: 3, Type: core.Income, Description: "Gift"},
		{ID: 4, Type: core.Expense, Description: "salary advance repay", Category: &food},
	}
	lister := &stubLister{rows: rows}
	c := NewController(lister)

	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{Type: core.Income, Search: "salary"}))
	v := c.View()

	ids := []int64{}
	for _, tx := range v.Rows {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []int64{1, 2}, ids)
	require.Len(t, lister.queries, 1)
	assert.Equal(t, api.TransactionQuery{Type: core.Income}, lister.queries[0], "search must not be sent to the backend")
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	c := NewController(&stubLister{})

	older := c.Begin(Filter{Type: core.Expense})
	newer := c.Begin(Filter{Type: core.Income})

	assert.True(t, c.Apply(newer, makeRows(2, core.Income, "new"), nil))
	assert.False(t, c.Apply(older, makeRows(7, core.Expense, "old"), nil))

	v := c.View()
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, core.Income, v.Filter.Type)
}

func TestStaleErrorIsDiscarded(t *testing.T) {
	c := NewController(&stubLister{})
	older := c.Begin(Filter{})
	newer := c.Begin(Filter{})

	assert.True(t, c.Apply(newer, makeRows(1, core.Income, "ok"), nil))
	assert.False(t, c.Apply(older, nil, errors.New("boom")))
	assert.NoError(t, c.View().Err)
}

// blockingLister lets the test decide the completion order of two fetches.
type blockingLister struct {
	release map[core.EntryType]chan struct{}
}

func (b *blockingLister) ListTransactions(_ context.Context, _ api.Tokens, q api.TransactionQuery) ([]core.Transaction, error) {
	<-b.release[q.Type]
	n := 3
	if q.Type == core.Income {
		n = 5
	}
	return makeRows(n, q.Type, string(q.Type)), nil
}

func TestOverlappingLoads_LatestWins(t *testing.T) {
	lister := &blockingLister{release: map[core.EntryType]chan struct{}{
		core.Expense: make(chan struct{}),
		core.Income:  make(chan struct{}),
	}}
	c := NewController(lister)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), api.Tokens{}, Filter{Type: core.Expense})
	}()
	// Give the first load time to take its ticket.
	require.Eventually(t, func() bool { return c.Filter().Type == core.Expense }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Load(context.Background(), api.Tokens{}, Filter{Type: core.Income})
	}()
	require.Eventually(t, func() bool { return c.Filter().Type == core.Income }, time.Second, time.Millisecond)

	close(lister.release[core.Income])
	close(lister.release[core.Expense])
	wg.Wait()

	v := c.View()
	assert.Equal(t, 5, v.Total)
	for _, tx := range v.Rows {
		assert.Equal(t, core.Income, tx.Type)
	}
}

func TestLoadError_KeepsPreviousRows(t *testing.T) {
	lister := &stubLister{rows: makeRows(4, core.Expense, "x")}
	c := NewController(lister)
	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{}))

	lister.err = errors.New("backend down")
	err := c.Load(context.Background(), api.Tokens{}, Filter{Type: core.Income})
	require.Error(t, err)

	v := c.View()
	assert.Equal(t, 4, v.Total)
	assert.Error(t, v.Err)
	assert.True(t, c.Loaded())
}

func TestReload_FetchesUnfilteredAndKeepsFilterValues(t *testing.T) {
	lister := &stubLister{rows: append(makeRows(25, core.Expense, "Lunch"), makeRows(3, core.Income, "Salary")...)}
	c := NewController(lister)
	f := Filter{Type: core.Income, Search: "salary"}
	require.NoError(t, c.Load(context.Background(), api.Tokens{}, f))
	require.Equal(t, 3, c.View().Total)

	require.NoError(t, c.Reload(context.Background(), api.Tokens{}))

	v := c.View()
	assert.Equal(t, 28, v.Total, "reload shows the whole unfiltered set")
	assert.Equal(t, f, v.Filter, "filter inputs keep their values")
	assert.Equal(t, api.TransactionQuery{}, lister.queries[len(lister.queries)-1])
}

func TestReload_KeepsPageWithinBounds(t *testing.T) {
	lister := &stubLister{rows: makeRows(21, core.Expense, "x")}
	c := NewController(lister)
	require.NoError(t, c.Load(context.Background(), api.Tokens{}, Filter{}))
	c.SetPage(3)

	lister.rows = lister.rows[:20]
	require.NoError(t, c.Reload(context.Background(), api.Tokens{}))
	assert.Equal(t, 2, c.View().Page)

	lister.rows = makeRows(40, core.Expense, "x")
	c.SetPage(2)
	require.NoError(t, c.Reload(context.Background(), api.Tokens{}))
	assert.Equal(t, 2, c.View().Page, "reload does not reset the page")
}

func TestFilterFromValues(t *testing.T) {
	v := url.Values{
		"type":       {"income"},
		"category":   {"12"},
		"start_date": {"2025-01-01"},
		"end_date":   {"not-a-date"},
		"search":     {"  rent "},
	}
	f := FilterFromValues(v)
	assert.Equal(t, core.Income, f.Type)
	assert.Equal(t, int64(12), f.CategoryID)
	assert.Equal(t, "2025-01-01", f.StartDate.String())
	assert.True(t, f.EndDate.IsZero())
	assert.Equal(t, "rent", f.Search)

	assert.Equal(t, "category=12&search=rent&start_date=2025-01-01&type=income", f.Values().Encode())
	assert.True(t, FilterFromValues(url.Values{"type": {"bogus"}}).IsZero())
}

func TestRegistry(t *testing.T) {
	lister := &stubLister{}
	r := NewRegistry(lister, cache.NewLRUCache[*Controller](10, time.Minute))

	a := r.For("session-a")
	assert.Same(t, a, r.For("session-a"))
	assert.NotSame(t, a, r.For("session-b"))
	assert.NotSame(t, r.For(""), r.For(""))
	assert.Equal(t, 2, r.Size())

	r.Forget("session-a")
	assert.NotSame(t, a, r.For("session-a"))
}
