// Package transactions holds the per-browser transaction list state: filter
// criteria, the fetched set, the client-side search pass and pagination.
package transactions

import (
	"context"
	"sync"

	"dotproduct/internal/api"
	"dotproduct/internal/core"
)

// PageSize is the fixed number of rows per page.
const PageSize = 10

// Lister fetches transactions matching server-side filters.
type Lister interface {
	ListTransactions(ctx context.Context, tokens api.Tokens, q api.TransactionQuery) ([]core.Transaction, error)
}

// Ticket identifies one fetch. Only the ticket of the latest Begin may apply
// its result.
type Ticket struct {
	generation uint64
	filter     Filter
	reload     bool
}

// Query returns the server-side query for the fetch.
func (t Ticket) Query() api.TransactionQuery {
	if t.reload {
		return api.TransactionQuery{}
	}
	return t.filter.Query()
}

type Controller struct {
	mu         sync.Mutex
	lister     Lister
	filter     Filter
	rows       []core.Transaction
	page       int
	generation uint64
	loaded     bool
	lastErr    error
}

func NewController(lister Lister) *Controller {
	return &Controller{lister: lister, page: 1}
}

// Begin records f as the active filter and starts a new fetch generation.
func (c *Controller) Begin(f Filter) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.filter = f
	return Ticket{generation: c.generation, filter: f}
}

// BeginReload starts a fetch of the unfiltered set, keeping the current
// filter values and page.
func (c *Controller) BeginReload() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return Ticket{generation: c.generation, filter: c.filter, reload: true}
}

// Apply stores the outcome of the fetch identified by t. It reports false,
// and changes nothing, when a newer fetch has started since.
func (c *Controller) Apply(t Ticket, items []core.Transaction, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.generation != c.generation {
		return false
	}
	if err != nil {
		c.lastErr = err
		return true
	}
	c.lastErr = nil
	c.loaded = true
	if t.reload {
		c.rows = items
		c.page = clampPage(c.page, totalPages(len(c.rows)))
		return true
	}
	c.rows = Search(items, t.filter.Search)
	c.page = 1
	return true
}

// Load applies f, fetching the matching set and running the search pass.
// A result superseded by a newer fetch is dropped silently.
func (c *Controller) Load(ctx context.Context, tokens api.Tokens, f Filter) error {
	t := c.Begin(f)
	return c.run(ctx, tokens, t)
}

// Reload refreshes after a mutation. The whole unfiltered set is fetched
// and shown while the filter inputs keep their values.
func (c *Controller) Reload(ctx context.Context, tokens api.Tokens) error {
	t := c.BeginReload()
	return c.run(ctx, tokens, t)
}

func (c *Controller) run(ctx context.Context, tokens api.Tokens, t Ticket) error {
	items, err := c.lister.ListTransactions(ctx, tokens, t.Query())
	if !c.Apply(t, items, err) {
		return nil
	}
	return err
}

// SetPage moves to page p, clamped to the available pages. No fetch happens.
func (c *Controller) SetPage(p int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = clampPage(p, totalPages(len(c.rows)))
	return c.page
}

func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Find returns a row of the current set by id.
func (c *Controller) Find(id int64) (core.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tx := range c.rows {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

// View is a snapshot of the list for rendering.
type View struct {
	Filter     Filter
	Rows       []core.Transaction
	Page       int
	TotalPages int
	Total      int
	// From and To are the 1-based bounds of Rows within the set.
	From int
	To   int
	Err  error
}

func (v View) HasPrev() bool { return v.Page > 1 }

func (v View) HasNext() bool { return v.Page < v.TotalPages }

func (v View) PrevPage() int { return v.Page - 1 }

func (v View) NextPage() int { return v.Page + 1 }

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := len(c.rows)
	pages := totalPages(total)
	page := clampPage(c.page, pages)
	start := (page - 1) * PageSize
	end := min(start+PageSize, total)

	v := View{
		Filter:     c.filter,
		Page:       page,
		TotalPages: pages,
		Total:      total,
		Err:        c.lastErr,
		Rows:       []core.Transaction{},
	}
	if start < end {
		v.Rows = append(v.Rows, c.rows[start:end]...)
		v.From = start + 1
		v.To = end
	}
	return v
}

// totalPages is ceil(n/PageSize); zero for an empty set.
func totalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

func clampPage(p, pages int) int {
	return max(1, min(p, max(1, pages)))
}
