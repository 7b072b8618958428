package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// DateLayout is the wire and form format for calendar dates.
const DateLayout = "2006-01-02"

// UncategorizedLabel is shown for transactions without a category.
const UncategorizedLabel = "Uncategorized"

type (
	EntryType string

	Period string

	// Date is a calendar day without time of day, encoded as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	User struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		Email     string `json:"email,omitempty"`
		FirstName string `json:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"`
	}

	Category struct {
		ID        int64     `json:"id"`
		User      int64     `json:"user"`
		Name      string    `json:"name"`
		Type      EntryType `json:"type"`
		CreatedAt time.Time `json:"created_at"`
	}

	Transaction struct {
		ID           int64     `json:"id"`
		User         int64     `json:"user"`
		Category     *int64    `json:"category"`
		CategoryName string    `json:"category_name"`
		Amount       Money     `json:"amount"`
		Description  string    `json:"description"`
		Date         Date      `json:"date"`
		Type         EntryType `json:"type"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Budget struct {
		ID           int64     `json:"id"`
		User         int64     `json:"user"`
		Category     int64     `json:"category"`
		CategoryName string    `json:"category_name"`
		CategoryType EntryType `json:"category_type"`
		Amount       Money     `json:"amount"`
		Period       Period    `json:"period"`
		StartDate    Date      `json:"start_date"`
		CreatedAt    time.Time `json:"created_at"`
	}
)

var (
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidDate      = errors.New("invalid date")
)

// ParseEntryType accepts "income" or "expense" in any case.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryType, s)
	}
	return t, nil
}

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

// Label is the capitalized form shown in the UI.
func (t EntryType) Label() string {
	switch t {
	case Income:
		return "Income"
	case Expense:
		return "Expense"
	default:
		return string(t)
	}
}

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Weekly, Monthly, Yearly:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p Period) Label() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current UTC calendar day.
func Today() Date {
	y, m, d := time.Now().UTC().Date()
	return NewDate(y, int(m), d)
}

// String returns YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DisplayName is the first name when known, otherwise the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FirstName) != "" {
		return u.FirstName
	}
	return u.Username
}

// CategoryLabel returns the category name or "Uncategorized".
func (t Transaction) CategoryLabel() string {
	if t.CategoryName == "" {
		return UncategorizedLabel
	}
	return t.CategoryName
}
