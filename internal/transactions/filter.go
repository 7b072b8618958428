package transactions

import (
	"net/url"
	"strconv"
	"strings"

	"dotproduct/internal/api"
	"dotproduct/internal/core"
)

// Filter is the list criteria. Search is applied locally and never sent to
// the backend.
type Filter struct {
	Type       core.EntryType
	CategoryID int64
	StartDate  core.Date
	EndDate    core.Date
	Search     string
}

func (f Filter) Query() api.TransactionQuery {
	return api.TransactionQuery{
		Type:       f.Type,
		CategoryID: f.CategoryID,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
	}
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

// FilterFromValues reads filter inputs from a form or query string.
// Unparseable values are treated as unset.
func FilterFromValues(v url.Values) Filter {
	var f Filter
	if typ, err := core.ParseEntryType(v.Get("type")); err == nil {
		f.Type = typ
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(v.Get("category")), 10, 64); err == nil && id > 0 {
		f.CategoryID = id
	}
	if d, err := core.ParseDate(v.Get("start_date")); err == nil {
		f.StartDate = d
	}
	if d, err := core.ParseDate(v.Get("end_date")); err == nil {
		f.EndDate = d
	}
	f.Search = strings.TrimSpace(v.Get("search"))
	return f
}

// Values is the inverse of FilterFromValues, used to build links.
func (f Filter) Values() url.Values {
	v := f.Query().Values()
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

// Search keeps rows whose description or category name contains term,
// case-insensitively. An empty term keeps everything.
func Search(rows []core.Transaction, term string) []core.Transaction {
	if term == "" {
		return rows
	}
	needle := strings.ToLower(term)
	out := make([]core.Transaction, 0, len(rows))
	for _, tx := range rows {
		if strings.Contains(strings.ToLower(tx.Description), needle) ||
			strings.Contains(strings.ToLower(tx.CategoryName), needle) {
			out = append(out, tx)
		}
	}
	return out
}
