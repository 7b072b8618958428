package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized matches any *Error carrying HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches any *Error carrying HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrUnexpectedShape is returned when a list response is neither an array
	// nor an object wrapping one.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// Error describes a failed backend call. Status is 0 for transport failures.
type Error struct {
	Status int
	Method string
	Path   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// DetailOf returns the backend's human readable message carried by err, or
// fallback when there is none.
func DetailOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// parseDetail extracts a message from an error body. It understands
// {"detail": "..."}, DRF field errors {"amount": ["..."]} and
// {"non_field_errors": ["..."]}.
func parseDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil {
			return strings.Join(list, " ")
		}
		return ""
	}
	if raw, ok := obj["detail"]; ok {
		if s := messages(raw); s != "" {
			return s
		}
	}
	if raw, ok := obj["non_field_errors"]; ok {
		if s := messages(raw); s != "" {
			return s
		}
	}

	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	var parts []string
	for _, field := range fields {
		if s := messages(obj[field]); s != "" {
			parts = append(parts, field+": "+s)
		}
	}
	return strings.Join(parts, "; ")
}

func messages(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, " ")
	}
	return ""
}
