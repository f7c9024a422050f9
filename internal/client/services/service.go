// Package services exposes the typed domain operations the UI layer calls:
// auth, lucky spin items, spin sequences and members. Every method validates
// input locally before going to the wire, then validates and normalizes the
// response shape.
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
)

// ValidationError is raised locally, before any network call, and is never
// retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErr(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// apiErr maps a failed call to an error whose text is safe to surface,
// keeping the classified error in the chain: explicit API body fields win,
// then the status-derived message, then the fallback.
func apiErr(err error, fallback string) error {
	var pe *api.ProcessedError
	if errors.As(err, &pe) && pe.UserMessage != "" {
		fallback = pe.UserMessage
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

// decodeList accepts both a bare JSON array and a {"data": [...]} envelope.
func decodeList[T any](data json.RawMessage) ([]T, error) {
	var direct []T
	if err := json.Unmarshal(data, &direct); err == nil {
		return direct, nil
	}
	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return nil, errors.New("unexpected list response shape")
}

// decodeObject accepts both a bare JSON object and a {"data": {...}} envelope.
func decodeObject[T any](data json.RawMessage) (T, error) {
	var direct T
	if err := json.Unmarshal(data, &direct); err == nil {
		return direct, nil
	}
	var wrapped struct {
		Data *T `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		return *wrapped.Data, nil
	}
	var zero T
	return zero, errors.New("unexpected object response shape")
}

// looseNumber tolerates numbers the API renders as strings ("50" vs 50).
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(b)), `"`))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*n = looseNumber(f)
	return nil
}

// looseString trims surrounding whitespace on decode.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = looseString(strings.TrimSpace(raw))
	return nil
}
