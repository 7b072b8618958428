package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"dotproduct/internal/api"
	"dotproduct/internal/charts"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
	"dotproduct/internal/transactions"
)

const (
	msgListFailed       = "Failed to load transactions"
	msgCreateFailed     = "Failed to create transaction"
	msgUpdateFailed     = "Failed to update transaction"
	msgDeleteFailed     = "Failed to delete transaction"
	msgCategoriesFailed = "Failed to load categories"
)

type listData struct {
	transactions.View
	Error string
}

func listFrom(v transactions.View) listData {
	d := listData{View: v}
	if v.Err != nil {
		d.Error = msgListFailed
	}
	return d
}

type transactionsPage struct {
	page
	List       listData
	Filter     transactions.Filter
	Categories []core.Category
}

// categoryField is the category select with its inline "new category" control.
type categoryField struct {
	Type       core.EntryType
	Categories []core.Category
	Selected   string
	Error      string
	// Fixed marks a field whose type cannot change, as on budgets.
	Fixed bool
}

type transactionFormPage struct {
	page
	Form     core.TransactionForm
	ID       int64
	Action   string
	Submit   string
	Category categoryField
	Error    string
	Field    string
	Partial  bool
}

type deletePage struct {
	page
	Tx      core.Transaction
	Message string
	Error   string
	Partial bool
}

// handleTransactionsPage renders the list page. With keep=1 and a loaded
// controller the current state is shown as is, so that filter inputs keep
// their values after a mutation.
func (s *Server) handleTransactionsPage(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	ctrl := s.registry.For(c.key)
	q := r.URL.Query()

	if q.Get("keep") != "1" || !ctrl.Loaded() {
		err := ctrl.Load(r.Context(), c.tokens, transactions.FilterFromValues(q))
		if s.unauthorized(w, r, c, err) {
			return
		}
		if err != nil {
			s.logFetchFailure(r.Context(), "transactions", err)
		}
	}

	view := ctrl.View()
	cats, err := s.backend.ListCategories(r.Context(), c.tokens, view.Filter.Type)
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logFetchFailure(r.Context(), "categories", err)
	}

	s.render(w, r, http.StatusOK, "transactions.html", transactionsPage{
		page:       s.page(r, "Transactions", "transactions"),
		List:       listFrom(view),
		Filter:     view.Filter,
		Categories: cats,
	})
}

// handleTransactionsList renders the list partial. Filter changes fetch;
// page changes only move within the set already in memory.
func (s *Server) handleTransactionsList(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	ctrl := s.registry.For(c.key)
	q := r.URL.Query()

	var err error
	switch ParseListAction(q) {
	case ActionFilter:
		err = ctrl.Load(r.Context(), c.tokens, transactions.FilterFromValues(q))
	case ActionPage:
		if !ctrl.Loaded() {
			err = ctrl.Load(r.Context(), c.tokens, ctrl.Filter())
		}
		if err == nil {
			ctrl.SetPage(ParsePage(q.Get("page")))
		}
	case ActionView:
		if !ctrl.Loaded() {
			err = ctrl.Load(r.Context(), c.tokens, ctrl.Filter())
		}
	}
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logFetchFailure(r.Context(), "transactions", err)
	}

	s.render(w, r, http.StatusOK, "transactions_list", listFrom(ctrl.View()))
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	typ, err := core.ParseEntryType(r.URL.Query().Get("type"))
	if err != nil {
		typ = core.Expense
	}
	data := transactionFormPage{
		page:    s.page(r, "New Transaction", "transactions"),
		Form:    core.TransactionForm{Type: string(typ), Date: core.Today().String()},
		Action:  "/transactions",
		Submit:  "Add Transaction",
		Partial: isHTMX(r),
	}
	if !s.fillCategoryField(w, r, c, &data) {
		return
	}
	s.renderTransactionForm(w, r, http.StatusOK, data)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	c := callerFrom(r)
	data := transactionFormPage{
		page:    s.page(r, "New Transaction", "transactions"),
		Form:    ParseTransactionForm(r.PostForm),
		Action:  "/transactions",
		Submit:  "Add Transaction",
		Partial: isHTMX(r),
	}

	in, err := data.Form.Parse()
	if err != nil {
		s.rejectTransactionForm(w, r, c, data, err)
		return
	}

	tx, err := s.backend.CreateTransaction(r.Context(), c.tokens, in)
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logMutationFailure(r.Context(), "transaction", log.OpCreate, err)
		data.Error = api.DetailOf(err, msgCreateFailed)
		if s.fillCategoryField(w, r, c, &data) {
			s.renderTransactionForm(w, r, mutationStatus(err), data)
		}
		return
	}

	s.mutated(r.Context(), "transaction", log.OpCreate, tx.ID)
	s.record(r.Context(), core.ActivityTransactionCreate, c.user, tx.ID, describe(tx))
	s.afterTransactionChange(w, r, c, "Transaction added")
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	id, ok := ParsePathID(r)
	if !ok {
		NotFoundError("Transaction not found").Write(w)
		return
	}
	tx, ok := s.lookupTransaction(w, r, c, id)
	if !ok {
		return
	}
	data := transactionFormPage{
		page:    s.page(r, "Edit Transaction", "transactions"),
		Form:    core.FormFromTransaction(tx),
		ID:      id,
		Action:  fmt.Sprintf("/transactions/%d", id),
		Submit:  "Update Transaction",
		Partial: isHTMX(r),
	}
	if !s.fillCategoryField(w, r, c, &data) {
		return
	}
	s.renderTransactionForm(w, r, http.StatusOK, data)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	c := callerFrom(r)
	id, ok := ParsePathID(r)
	if !ok {
		NotFoundError("Transaction not found").Write(w)
		return
	}
	data := transactionFormPage{
		page:    s.page(r, "Edit Transaction", "transactions"),
		Form:    ParseTransactionForm(r.PostForm),
		ID:      id,
		Action:  fmt.Sprintf("/transactions/%d", id),
		Submit:  "Update Transaction",
		Partial: isHTMX(r),
	}

	in, err := data.Form.Parse()
	if err != nil {
		s.rejectTransactionForm(w, r, c, data, err)
		return
	}

	tx, err := s.backend.UpdateTransaction(r.Context(), c.tokens, id, in)
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logMutationFailure(r.Context(), "transaction", log.OpUpdate, err)
		data.Error = api.DetailOf(err, msgUpdateFailed)
		if s.fillCategoryField(w, r, c, &data) {
			s.renderTransactionForm(w, r, mutationStatus(err), data)
		}
		return
	}

	s.mutated(r.Context(), "transaction", log.OpUpdate, tx.ID)
	s.record(r.Context(), core.ActivityTransactionUpdate, c.user, tx.ID, describe(tx))
	s.afterTransactionChange(w, r, c, "Transaction updated")
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	id, ok := ParsePathID(r)
	if !ok {
		NotFoundError("Transaction not found").Write(w)
		return
	}
	tx, ok := s.lookupTransaction(w, r, c, id)
	if !ok {
		return
	}
	s.renderDelete(w, r, http.StatusOK, deletePage{
		page:    s.page(r, "Delete Transaction", "transactions"),
		Tx:      tx,
		Message: deleteMessage(tx),
		Partial: isHTMX(r),
	})
}

// handleDeleteTransaction deletes without undo. Failures keep the
// confirmation open with the backend's message.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	id, ok := ParsePathID(r)
	if !ok {
		NotFoundError("Transaction not found").Write(w)
		return
	}

	tx, known := s.registry.For(c.key).Find(id)
	err := s.backend.DeleteTransaction(r.Context(), c.tokens, id)
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logMutationFailure(r.Context(), "transaction", log.OpDelete, err)
		if !known {
			tx = core.Transaction{ID: id}
		}
		s.renderDelete(w, r, mutationStatus(err), deletePage{
			page:    s.page(r, "Delete Transaction", "transactions"),
			Tx:      tx,
			Message: deleteMessage(tx),
			Error:   api.DetailOf(err, msgDeleteFailed),
			Partial: isHTMX(r),
		})
		return
	}

	s.mutated(r.Context(), "transaction", log.OpDelete, id)
	summary := ""
	if known {
		summary = describe(tx)
	}
	s.record(r.Context(), core.ActivityTransactionDelete, c.user, id, summary)
	s.afterTransactionChange(w, r, c, "Transaction deleted")
}

// afterTransactionChange reloads the list and either closes the modal or
// navigates back to the list page.
func (s *Server) afterTransactionChange(w http.ResponseWriter, r *http.Request, c caller, message string) {
	err := s.registry.For(c.key).Reload(r.Context(), c.tokens)
	if s.unauthorized(w, r, c, err) {
		return
	}
	if err != nil {
		s.logFetchFailure(r.Context(), "transactions", err)
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/transactions?keep=1", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerTransactionsChanged().
		TriggerModalClose().
		TriggerSuccessNotification(message).
		Write(w)
}

// lookupTransaction serves the row from the list in memory, falling back to
// the backend. It writes the error response when it reports false.
func (s *Server) lookupTransaction(w http.ResponseWriter, r *http.Request, c caller, id int64) (core.Transaction, bool) {
	if tx, ok := s.registry.For(c.key).Find(id); ok {
		return tx, true
	}
	tx, err := s.backend.GetTransaction(r.Context(), c.tokens, id)
	if s.unauthorized(w, r, c, err) {
		return core.Transaction{}, false
	}
	if errors.Is(err, api.ErrNotFound) {
		NotFoundError("Transaction not found").Write(w)
		return core.Transaction{}, false
	}
	if err != nil {
		s.logFetchFailure(r.Context(), "transaction", err)
		BadGatewayError("Failed to load transaction").Write(w)
		return core.Transaction{}, false
	}
	return tx, true
}

// rejectTransactionForm re-renders a form that failed local validation.
func (s *Server) rejectTransactionForm(w http.ResponseWriter, r *http.Request, c caller, data transactionFormPage, err error) {
	var fe *core.FieldError
	if errors.As(err, &fe) {
		data.Error, data.Field = fe.Message, fe.Field
	} else {
		data.Error = err.Error()
	}
	s.logger.DebugContext(r.Context(), "Transaction form rejected",
		log.FieldOperation, log.OpValidate,
		"field", data.Field)
	if s.fillCategoryField(w, r, c, &data) {
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, data)
	}
}

// fillCategoryField loads the categories matching the form's type. It
// reports false when the response has already been written.
func (s *Server) fillCategoryField(w http.ResponseWriter, r *http.Request, c caller, data *transactionFormPage) bool {
	typ, err := core.ParseEntryType(data.Form.Type)
	if err != nil {
		typ = core.Expense
	}
	field, err := s.categoryField(r.Context(), c, typ, data.Form.Category)
	if s.unauthorized(w, r, c, err) {
		return false
	}
	data.Category = field
	return true
}

// categoryField builds the select. Only a 401 is returned as an error; other
// failures are shown in the field.
func (s *Server) categoryField(ctx context.Context, c caller, typ core.EntryType, selected string) (categoryField, error) {
	field := categoryField{Type: typ, Selected: selected}
	cats, err := s.backend.ListCategories(ctx, c.tokens, typ)
	if errors.Is(err, api.ErrUnauthorized) {
		return field, err
	}
	if err != nil {
		s.logFetchFailure(ctx, "categories", err)
		field.Error = msgCategoriesFailed
	}
	field.Categories = cats
	return field, nil
}

func (s *Server) renderTransactionForm(w http.ResponseWriter, r *http.Request, status int, data transactionFormPage) {
	name := "transaction_form.html"
	if data.Partial {
		name = "transaction_form"
	}
	s.render(w, r, status, name, data)
}

func (s *Server) renderDelete(w http.ResponseWriter, r *http.Request, status int, data deletePage) {
	name := "delete_confirm.html"
	if data.Partial {
		name = "delete_confirm"
	}
	s.render(w, r, status, name, data)
}

func (s *Server) mutated(ctx context.Context, resource, op string, id int64) {
	s.appMetrics.mutations.Add(1)
	s.access.LogMutation(ctx, resource, op, id)
}

func deleteMessage(tx core.Transaction) string {
	typ := string(tx.Type)
	if typ == "" {
		typ = "selected"
	}
	return fmt.Sprintf("Are you sure you want to delete this %s transaction for %s? This action cannot be undone.",
		typ, charts.Money(tx.Amount))
}

// describe is the activity summary of a transaction.
func describe(tx core.Transaction) string {
	s := tx.Type.Label() + " " + charts.Money(tx.Amount) + " · " + tx.CategoryLabel()
	if tx.Description != "" {
		s += " · " + tx.Description
	}
	return s
}

// categoryID formats an id the way forms submit it.
func categoryID(id int64) string {
	return strconv.FormatInt(id, 10)
}
