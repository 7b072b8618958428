package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listKeys are the object keys that may wrap a list payload, in lookup order.
var listKeys = []string{"results", "budget_status", "category_summary"}

// decodeList normalizes the two list envelopes the backend produces, a bare
// array or an object wrapping one, into a plain slice.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return nonNil(items), nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode list envelope: %w", err)
		}
		for _, key := range listKeys {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 || raw[0] != '[' {
				return nil, fmt.Errorf("%w: %q is not an array", ErrUnexpectedShape, key)
			}
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			return nonNil(items), nil
		}
		return nil, fmt.Errorf("%w: object without a list field", ErrUnexpectedShape)
	default:
		return nil, fmt.Errorf("%w: starts with %q", ErrUnexpectedShape, trimmed[0])
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
