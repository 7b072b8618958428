package http

import (
	"errors"
	"net/http"

	"dotproduct/internal/api"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
)

const (
	msgBudgetFailed   = "Failed to create budget"
	msgCategoryFailed = "Failed to create category"
)

type budgetFormPage struct {
	page
	Form     core.BudgetForm
	Category categoryField
	Error    string
	Field    string
}

type categoryFormPage struct {
	page
	Form   core.CategoryForm
	Inline bool
	Fixed  bool
	Error  string
}

// Budgets track spending, so only expense categories are offered.
func (s *Server) handleNewBudget(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	data := budgetFormPage{
		page: s.page(r, "New Budget", "budgets"),
		Form: core.BudgetForm{Period: string(core.Monthly)},
	}
	if !s.fillBudgetCategories(w, r, c, &data) {
		return
	}
	s.render(w, r, http.StatusOK, "budget_form.html", data)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	c := callerFrom(r)
	data := budgetFormPage{
		page: s.page(r, "New Budget", "budgets"),
		Form: ParseBudgetForm(r.PostForm),
	}

	in, err := data.Form.Parse()
	if err != nil {
		var fe *core.FieldError
		if errors.As(err, &fe) {
			data.Error, data.Field = fe.Message, fe.Field
		}
		if s.fillBudgetCategories(w, r, c, &data) {
			s.render(w, r, http.StatusUnprocessableEntity, "budget_form.html", data)
		}
		return
	}

	budget, err := s.backend.CreateBudget(r.Context(), c.tokens, in)
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logMutationFailure(r.Context(), "budget", log.OpCreate, err)
		data.Error = api.DetailOf(err, msgBudgetFailed)
		if s.fillBudgetCategories(w, r, c, &data) {
			s.render(w, r, mutationStatus(err), "budget_form.html", data)
		}
		return
	}

	s.mutated(r.Context(), "budget", log.OpCreate, budget.ID)
	summary := budget.CategoryName + " " + budget.Amount.String() + " " + budget.Period.Label()
	s.record(r.Context(), core.ActivityBudgetCreate, c.user, budget.ID, summary)
	s.redirect(w, r, "/dashboard")
}

func (s *Server) fillBudgetCategories(w http.ResponseWriter, r *http.Request, c caller, data *budgetFormPage) bool {
	field, err := s.categoryField(r.Context(), c, core.Expense, data.Form.Category)
	if s.unauthorized(w, r, c, err) {
		return false
	}
	field.Fixed = true
	data.Category = field
	return true
}

// handleNewCategory renders the category form. With inline=1 it renders the
// compact variant that replaces the category field of an open form.
func (s *Server) handleNewCategory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := core.ParseEntryType(q.Get("type"))
	if err != nil {
		typ = core.Expense
	}
	data := categoryFormPage{
		page:   s.page(r, "New Category", "categories"),
		Form:   core.CategoryForm{Type: string(typ)},
		Inline: q.Get("inline") == "1",
		Fixed:  q.Get("fixed") == "1",
	}
	s.renderCategoryForm(w, r, http.StatusOK, data)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	c := callerFrom(r)
	data := categoryFormPage{
		page:   s.page(r, "New Category", "categories"),
		Form:   ParseCategoryForm(r.PostForm),
		Inline: r.PostForm.Get("inline") == "1",
		Fixed:  r.PostForm.Get("fixed") == "1",
	}

	in, err := data.Form.Parse()
	if err != nil {
		data.Error = err.Error()
		s.renderCategoryForm(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	cat, err := s.backend.CreateCategory(r.Context(), c.tokens, in)
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logMutationFailure(r.Context(), "category", log.OpCreate, err)
		data.Error = api.DetailOf(err, msgCategoryFailed)
		s.renderCategoryForm(w, r, mutationStatus(err), data)
		return
	}

	s.mutated(r.Context(), "category", log.OpCreate, cat.ID)
	s.record(r.Context(), core.ActivityCategoryCreate, c.user, cat.ID, cat.Name+" ("+cat.Type.Label()+")")

	if !data.Inline {
		s.redirect(w, r, "/dashboard")
		return
	}

	// Inline creation swaps the field back in with the new category chosen.
	field, err := s.categoryField(r.Context(), c, cat.Type, categoryID(cat.ID))
	if s.unauthorized(w, r, c, err) {
		return
	}
	field.Fixed = data.Fixed
	s.renderWith(w, r, NewHTMXResponse().
		TriggerCategoryCreated(cat.ID, string(cat.Type)).
		TriggerSuccessNotification("Category added"),
		"category_field", field)
}

// handleCategoryOptions re-renders the category field for a type. Changing
// the type of a form resets its category choice.
func (s *Server) handleCategoryOptions(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	q := r.URL.Query()
	typ, err := core.ParseEntryType(q.Get("type"))
	if err != nil {
		typ = core.Expense
	}
	field, err := s.categoryField(r.Context(), c, typ, "")
	if s.unauthorized(w, r, c, err) {
		return
	}
	field.Fixed = q.Get("fixed") == "1"
	s.render(w, r, http.StatusOK, "category_field", field)
}

func (s *Server) renderCategoryForm(w http.ResponseWriter, r *http.Request, status int, data categoryFormPage) {
	name := "category_form.html"
	if data.Inline {
		name = "category_inline"
	}
	s.render(w, r, status, name, data)
}
