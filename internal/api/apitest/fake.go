// Package apitest provides an in-memory finance backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"dotproduct/internal/core"
)

// Request records what the backend received.
type Request struct {
	Method    string
	Path      string
	Query     string
	CSRF      string
	SessionID string
	Body      string
}

type account struct {
	user     core.User
	password string
}

// Backend mimics the REST endpoints the web front end consumes.
type Backend struct {
	Server *httptest.Server

	mu           sync.Mutex
	accounts     map[string]*account
	sessions     map[string]int64
	categories   []core.Category
	transactions []core.Transaction
	budgets      []core.Budget
	statusRows   []core.BudgetStatusItem
	failures     map[string]int
	requests     []Request
	nextID       int64
	envelope     bool
}

// New starts a backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	b := &Backend{
		accounts:     map[string]*account{},
		sessions:     map[string]int64{},
		categories:   []core.Category{},
		transactions: []core.Transaction{},
		budgets:      []core.Budget{},
		failures:     map[string]int{},
		nextID:       100,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", b.serve)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base URL.
func (b *Backend) URL() string {
	return b.Server.URL + "/api"
}

// AddUser registers an account and returns it.
func (b *Backend) AddUser(username, password string) core.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	u := core.User{ID: b.nextID, Username: username, Email: username + "@example.com"}
	b.accounts[username] = &account{user: u, password: password}
	return u
}

// IssueSession creates a live session id for username without a login call.
func (b *Backend) IssueSession(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[username]
	if !ok {
		panic("apitest: unknown user " + username)
	}
	b.nextID++
	sid := fmt.Sprintf("sess-%s-%d", username, b.nextID)
	b.sessions[sid] = acc.user.ID
	return sid
}

// ExpireSessions invalidates every session id.
func (b *Backend) ExpireSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = map[string]int64{}
}

func (b *Backend) AddCategory(name string, typ core.EntryType) core.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	c := core.Category{ID: b.nextID, Name: name, Type: typ, CreatedAt: time.Now().UTC()}
	b.categories = append(b.categories, c)
	return c
}

// AddTransaction stores tx, assigning an id and resolving the category name.
func (b *Backend) AddTransaction(tx core.Transaction) core.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	tx.ID = b.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC().Add(time.Duration(b.nextID) * time.Millisecond)
	}
	tx.CategoryName = b.categoryName(tx.Category)
	b.transactions = append(b.transactions, tx)
	return tx
}

// SetBudgetStatus overrides the budget-status payload.
func (b *Backend) SetBudgetStatus(rows []core.BudgetStatusItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusRows = rows
}

// WrapLists makes list endpoints answer {"results": [...]}.
func (b *Backend) WrapLists(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelope = on
}

// Fail makes every request whose path starts with prefix answer status.
// A zero status clears the failure.
func (b *Backend) Fail(prefix string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, prefix)
		return
	}
	b.failures[prefix] = status
}

// Requests returns a copy of the request log.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo returns logged requests matching method and path.
func (b *Backend) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) Transactions() []core.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Transaction(nil), b.transactions...)
}

func (b *Backend) categoryName(id *int64) string {
	if id == nil {
		return ""
	}
	for _, c := range b.categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return ""
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	defer b.mu.Unlock()

	rec := Request{Method: r.Method, Path: path, Query: r.URL.RawQuery, CSRF: r.Header.Get("X-CSRFToken"), Body: string(body)}
	if c, err := r.Cookie("sessionid"); err == nil {
		rec.SessionID = c.Value
	}
	b.requests = append(b.requests, rec)

	for prefix, status := range b.failures {
		if strings.HasPrefix(path, prefix) {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
	}

	switch {
	case path == "/health/":
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	case path == "/auth/login/" && r.Method == http.MethodPost:
		b.login(w, body)
		return
	case path == "/auth/register/" && r.Method == http.MethodPost:
		b.register(w, body)
		return
	}

	userID, ok := b.sessions[rec.SessionID]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		return
	}
	if r.Method != http.MethodGet && rec.CSRF == "" {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed: CSRF token missing."})
		return
	}

	switch {
	case path == "/auth/user/":
		writeJSON(w, http.StatusOK, b.userByID(userID))
	case path == "/auth/logout/":
		delete(b.sessions, rec.SessionID)
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Logout successful"})
	case path == "/categories/" && r.Method == http.MethodGet:
		b.writeList(w, b.categories)
	case path == "/categories/" && r.Method == http.MethodPost:
		var in core.CategoryInput
		_ = json.Unmarshal(body, &in)
		if in.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
			return
		}
		b.nextID++
		c := core.Category{ID: b.nextID, User: userID, Name: in.Name, Type: in.Type, CreatedAt: time.Now().UTC()}
		b.categories = append(b.categories, c)
		writeJSON(w, http.StatusCreated, c)
	case path == "/transactions/" && r.Method == http.MethodGet:
		b.writeList(w, b.filterTransactions(r))
	case path == "/transactions/" && r.Method == http.MethodPost:
		b.saveTransaction(w, userID, 0, body)
	case strings.HasPrefix(path, "/transactions/"):
		id, err := strconv.ParseInt(strings.Trim(strings.TrimPrefix(path, "/transactions/"), "/"), 10, 64)
		idx := b.transactionIndex(id)
		if err != nil || idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, b.transactions[idx])
		case http.MethodPut:
			b.saveTransaction(w, userID, id, body)
		case http.MethodDelete:
			b.transactions = append(b.transactions[:idx], b.transactions[idx+1:]...)
			w.WriteHeader(http.StatusNoContent)
		}
	case path == "/budgets/" && r.Method == http.MethodGet:
		b.writeList(w, b.budgets)
	case path == "/budgets/" && r.Method == http.MethodPost:
		var in core.BudgetInput
		_ = json.Unmarshal(body, &in)
		b.nextID++
		bud := core.Budget{ID: b.nextID, User: userID, Category: in.Category, CategoryName: b.categoryName(&in.Category),
			Amount: in.Amount, Period: in.Period, StartDate: core.Today(), CreatedAt: time.Now().UTC()}
		b.budgets = append(b.budgets, bud)
		writeJSON(w, http.StatusCreated, bud)
	case strings.HasPrefix(path, "/budgets/"):
		id, err := strconv.ParseInt(strings.Trim(strings.TrimPrefix(path, "/budgets/"), "/"), 10, 64)
		idx := b.budgetIndex(id)
		if err != nil || idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, b.budgets[idx])
		case http.MethodPut:
			var in core.BudgetInput
			_ = json.Unmarshal(body, &in)
			bud := b.budgets[idx]
			bud.Category, bud.CategoryName = in.Category, b.categoryName(&in.Category)
			bud.Amount, bud.Period = in.Amount, in.Period
			b.budgets[idx] = bud
			writeJSON(w, http.StatusOK, bud)
		case http.MethodDelete:
			b.budgets = append(b.budgets[:idx], b.budgets[idx+1:]...)
			w.WriteHeader(http.StatusNoContent)
		}
	case path == "/financial-summary/":
		writeJSON(w, http.StatusOK, b.summary())
	case path == "/category-summary/":
		writeJSON(w, http.StatusOK, map[string]any{"category_summary": b.categorySummary()})
	case path == "/budget-status/":
		writeJSON(w, http.StatusOK, map[string]any{"budget_status": b.budgetStatus()})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

func (b *Backend) login(w http.ResponseWriter, body []byte) {
	var creds core.Credentials
	_ = json.Unmarshal(body, &creds)
	acc, ok := b.accounts[creds.Username]
	if !ok || acc.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	b.nextID++
	sid := fmt.Sprintf("sess-%s-%d", creds.Username, b.nextID)
	b.sessions[sid] = acc.user.ID
	csrf := "csrf-" + sid
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: sid, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: csrf, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Login successful", "user": acc.user, "csrf_token": csrf})
}

func (b *Backend) register(w http.ResponseWriter, body []byte) {
	var reg core.Registration
	_ = json.Unmarshal(body, &reg)
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username, email, and password are required"})
		return
	}
	if _, exists := b.accounts[reg.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already exists"})
		return
	}
	b.nextID++
	u := core.User{ID: b.nextID, Username: reg.Username, Email: reg.Email, FirstName: reg.FirstName, LastName: reg.LastName}
	b.accounts[reg.Username] = &account{user: u, password: reg.Password}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "User created successfully", "user": u})
}

func (b *Backend) userByID(id int64) core.User {
	for _, acc := range b.accounts {
		if acc.user.ID == id {
			return acc.user
		}
	}
	return core.User{}
}

func (b *Backend) saveTransaction(w http.ResponseWriter, userID, id int64, body []byte) {
	var in core.TransactionInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"amount": {"A valid number is required."}})
		return
	}
	if in.Category != nil {
		for _, c := range b.categories {
			if c.ID == *in.Category && c.Type != in.Type {
				writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {
					fmt.Sprintf("Transaction type (%s) must match category type (%s)", in.Type, c.Type)}})
				return
			}
		}
	}
	tx := core.Transaction{User: userID, Category: in.Category, CategoryName: b.categoryName(in.Category),
		Amount: in.Amount, Description: in.Description, Date: in.Date, Type: in.Type}
	if id == 0 {
		b.nextID++
		tx.ID = b.nextID
		tx.CreatedAt = time.Now().UTC()
		b.transactions = append(b.transactions, tx)
		writeJSON(w, http.StatusCreated, tx)
		return
	}
	idx := b.transactionIndex(id)
	tx.ID = id
	tx.CreatedAt = b.transactions[idx].CreatedAt
	b.transactions[idx] = tx
	writeJSON(w, http.StatusOK, tx)
}

func (b *Backend) transactionIndex(id int64) int {
	for i, tx := range b.transactions {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) budgetIndex(id int64) int {
	for i, bud := range b.budgets {
		if bud.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) filterTransactions(r *http.Request) []core.Transaction {
	q := r.URL.Query()
	out := []core.Transaction{}
	for _, tx := range b.transactions {
		if typ := q.Get("type"); typ != "" && string(tx.Type) != typ {
			continue
		}
		if cat := q.Get("category"); cat != "" && (tx.Category == nil || strconv.FormatInt(*tx.Category, 10) != cat) {
			continue
		}
		if start := q.Get("start_date"); start != "" && tx.Date.String() < start {
			continue
		}
		if end := q.Get("end_date"); end != "" && tx.Date.String() > end {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (b *Backend) summary() core.FinancialSummary {
	var s core.FinancialSummary
	for _, tx := range b.transactions {
		if tx.Type == core.Income {
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		} else {
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

func (b *Backend) categorySummary() []core.CategorySummaryItem {
	totals := map[string]*core.CategorySummaryItem{}
	var keys []string
	for _, tx := range b.transactions {
		key := tx.CategoryName + "|" + string(tx.Type)
		item, ok := totals[key]
		if !ok {
			item = &core.CategorySummaryItem{CategoryName: tx.CategoryName, CategoryType: tx.Type, Type: tx.Type}
			totals[key] = item
			keys = append(keys, key)
		}
		item.Total = item.Total.Add(tx.Amount)
	}
	out := make([]core.CategorySummaryItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, *totals[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.Cents > out[j].Total.Cents })
	return out
}

func (b *Backend) budgetStatus() []core.BudgetStatusItem {
	if b.statusRows != nil {
		return b.statusRows
	}
	out := []core.BudgetStatusItem{}
	for _, bud := range b.budgets {
		var actual core.Money
		for _, tx := range b.transactions {
			if tx.Category != nil && *tx.Category == bud.Category && !tx.Date.Before(bud.StartDate.Time) {
				actual = actual.Add(tx.Amount)
			}
		}
		out = append(out, core.BudgetStatusItem{
			Category:       bud.CategoryName,
			BudgetedAmount: bud.Amount,
			ActualAmount:   actual,
			Remaining:      bud.Amount.Sub(actual),
			Period:         bud.Period.Label(),
		})
	}
	return out
}

func (b *Backend) writeList(w http.ResponseWriter, items any) {
	if b.envelope {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "results": items})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
