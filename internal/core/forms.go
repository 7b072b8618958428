package core

import (
	"errors"
	"strconv"
	"strings"
)

// ErrValidation is the parent of every locally detected form error. Forms
// failing validation never reach the backend.
var ErrValidation = errors.New("validation failed")

var (
	ErrAmountRequired       = &FieldError{Field: "amount", Message: "Please enter a valid amount"}
	ErrDateRequired         = &FieldError{Field: "date", Message: "Please select a date"}
	ErrCategoryRequired     = &FieldError{Field: "category", Message: "Please select a category"}
	ErrCategoryNameRequired = &FieldError{Field: "name", Message: "Please enter a category name"}
	ErrTypeRequired         = &FieldError{Field: "type", Message: "Please select a type"}
	ErrPeriodRequired       = &FieldError{Field: "period", Message: "Please select a period"}
	ErrCredentialsRequired  = &FieldError{Field: "username", Message: "Please enter your username and password"}
)

// FieldError is a user-facing validation message bound to a form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Is(target error) bool { return target == ErrValidation }

// TransactionInput is the create/update payload for a transaction.
type TransactionInput struct {
	Category    *int64    `json:"category"`
	Amount      Money     `json:"amount"`
	Description string    `json:"description"`
	Date        Date      `json:"date"`
	Type        EntryType `json:"type"`
}

// TransactionForm holds raw form values as submitted by the browser.
type TransactionForm struct {
	Type        string
	Category    string
	Amount      string
	Description string
	Date        string
}

// Parse validates the form and builds the payload. The first failing rule wins.
func (f TransactionForm) Parse() (TransactionInput, error) {
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return TransactionInput{}, ErrAmountRequired
	}
	if strings.TrimSpace(f.Date) == "" {
		return TransactionInput{}, ErrDateRequired
	}
	date, err := ParseDate(f.Date)
	if err != nil {
		return TransactionInput{}, ErrDateRequired
	}
	typ := Expense
	if strings.TrimSpace(f.Type) != "" {
		if typ, err = ParseEntryType(f.Type); err != nil {
			return TransactionInput{}, ErrTypeRequired
		}
	}
	category, err := parseOptionalID(f.Category)
	if err != nil {
		return TransactionInput{}, ErrCategoryRequired
	}
	return TransactionInput{
		Category:    category,
		Amount:      amount,
		Description: strings.TrimSpace(f.Description),
		Date:        date,
		Type:        typ,
	}, nil
}

// FormFromTransaction pre-populates an edit form.
func FormFromTransaction(t Transaction) TransactionForm {
	f := TransactionForm{
		Type:        string(t.Type),
		Amount:      t.Amount.String(),
		Description: t.Description,
		Date:        t.Date.String(),
	}
	if t.Category != nil {
		f.Category = strconv.FormatInt(*t.Category, 10)
	}
	return f
}

// BudgetInput is the create/update payload for a budget. StartDate is set by
// the backend.
type BudgetInput struct {
	Category int64  `json:"category"`
	Amount   Money  `json:"amount"`
	Period   Period `json:"period"`
}

type BudgetForm struct {
	Category string
	Amount   string
	Period   string
}

func (f BudgetForm) Parse() (BudgetInput, error) {
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return BudgetInput{}, ErrAmountRequired
	}
	category, err := parseOptionalID(f.Category)
	if err != nil || category == nil {
		return BudgetInput{}, ErrCategoryRequired
	}
	period := Monthly
	if strings.TrimSpace(f.Period) != "" {
		if period, err = ParsePeriod(f.Period); err != nil {
			return BudgetInput{}, ErrPeriodRequired
		}
	}
	return BudgetInput{Category: *category, Amount: amount, Period: period}, nil
}

type CategoryInput struct {
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}

type CategoryForm struct {
	Name string
	Type string
}

func (f CategoryForm) Parse() (CategoryInput, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return CategoryInput{}, ErrCategoryNameRequired
	}
	typ := Expense
	if strings.TrimSpace(f.Type) != "" {
		var err error
		if typ, err = ParseEntryType(f.Type); err != nil {
			return CategoryInput{}, ErrTypeRequired
		}
	}
	return CategoryInput{Name: name, Type: typ}, nil
}

// Credentials are the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrCredentialsRequired
	}
	return nil
}

// Registration is the sign-up payload.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (r Registration) Validate() error {
	return r.Credentials().Validate()
}

func (r Registration) Credentials() Credentials {
	return Credentials{Username: r.Username, Password: r.Password}
}

func parseOptionalID(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrCategoryRequired
	}
	return &id, nil
}
