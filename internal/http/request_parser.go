// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// form readers for each domain form, path ids, list actions and input
// sanitization.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dotproduct/internal/core"
)

// ListAction is what a list partial request asks the controller to do.
type ListAction string

const (
	// ActionFilter applies new criteria and fetches.
	ActionFilter ListAction = "filter"
	// ActionPage moves between pages of the current set without fetching.
	ActionPage ListAction = "page"
	// ActionView re-renders the current state.
	ActionView ListAction = "view"
)

// ParseListAction reads the action parameter. Anything unknown filters.
func ParseListAction(query url.Values) ListAction {
	switch ListAction(strings.TrimSpace(query.Get("action"))) {
	case ActionPage:
		return ActionPage
	case ActionView:
		return ActionView
	default:
		return ActionFilter
	}
}

// ParsePage reads a 1-based page number, defaulting to 1.
func ParsePage(s string) int {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// ParsePathID reads the {id} path segment.
func ParsePathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseTransactionForm reads a submitted transaction form.
func ParseTransactionForm(form url.Values) core.TransactionForm {
	return core.TransactionForm{
		Type:        sanitizeInput(form.Get("type")),
		Category:    sanitizeInput(form.Get("category")),
		Amount:      sanitizeInput(form.Get("amount")),
		Description: sanitizeInput(form.Get("description")),
		Date:        sanitizeInput(form.Get("date")),
	}
}

func ParseBudgetForm(form url.Values) core.BudgetForm {
	return core.BudgetForm{
		Category: sanitizeInput(form.Get("category")),
		Amount:   sanitizeInput(form.Get("amount")),
		Period:   sanitizeInput(form.Get("period")),
	}
}

func ParseCategoryForm(form url.Values) core.CategoryForm {
	return core.CategoryForm{
		Name: sanitizeInput(form.Get("name")),
		Type: sanitizeInput(form.Get("type")),
	}
}

// ParseCredentials reads the login form. Passwords are passed through as typed.
func ParseCredentials(form url.Values) core.Credentials {
	return core.Credentials{
		Username: sanitizeInput(form.Get("username")),
		Password: form.Get("password"),
	}
}

func ParseRegistration(form url.Values) core.Registration {
	return core.Registration{
		Username:  sanitizeInput(form.Get("username")),
		Email:     sanitizeInput(form.Get("email")),
		Password:  form.Get("password"),
		FirstName: sanitizeInput(form.Get("first_name")),
		LastName:  sanitizeInput(form.Get("last_name")),
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
