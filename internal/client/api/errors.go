package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrorType buckets every failed call into one category.
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "NETWORK"
	ErrorTypeAuth       ErrorType = "AUTH"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeServer     ErrorType = "SERVER"
	ErrorTypeBusiness   ErrorType = "BUSINESS"
	ErrorTypeUnknown    ErrorType = "UNKNOWN"
)

// Sentinels for errors.Is checks against a classified error.
var (
	ErrNetwork    = errors.New("api: network error")
	ErrAuth       = errors.New("api: authentication error")
	ErrValidation = errors.New("api: validation error")
	ErrServer     = errors.New("api: server error")
	ErrBusiness   = errors.New("api: business rule violation")
	ErrUnknown    = errors.New("api: unknown error")
)

// ProcessedError is the classified form of any transport or HTTP failure.
// It is produced per failed call and consumed immediately; never persisted.
type ProcessedError struct {
	Type         ErrorType
	Message      string
	UserMessage  string
	Code         string
	Status       int
	Details      map[string][]string
	Retryable    bool
	RequiresAuth bool

	sentinel error
}

func (e *ProcessedError) Error() string { return e.Message }
func (e *ProcessedError) Unwrap() error { return e.sentinel }

// httpError is the raw shape handed to Classify when a response arrived
// with a non-2xx status.
type httpError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// errorBody is the structurally-typed "possible error body" the API may
// return. Extraction walks the fields in a fixed order instead of probing
// properties ad hoc.
type errorBody struct {
	Message string `json:"message"`
	Err     string `json:"error"`
	Detail  string `json:"detail"`
	Code    string `json:"code"`
}

// bodyMessage returns the first of message/error/detail present in b.
func bodyMessage(b []byte) string {
	var eb errorBody
	if err := json.Unmarshal(b, &eb); err != nil {
		return ""
	}
	for _, s := range []string{eb.Message, eb.Err, eb.Detail} {
		if s != "" {
			return s
		}
	}
	return ""
}

// fieldErrors collects top-level field -> [message, ...] entries from a
// validation error body.
func fieldErrors(b []byte) map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := map[string][]string{}
	for field, v := range raw {
		switch field {
		case "message", "error", "detail", "code", "status":
			continue
		}
		var msgs []string
		if err := json.Unmarshal(v, &msgs); err == nil && len(msgs) > 0 {
			out[field] = msgs
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err == nil && one != "" {
			out[field] = []string{one}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// flattenFieldErrors renders "field: message" lines in stable order.
func flattenFieldErrors(details map[string][]string) string {
	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var parts []string
	for _, f := range fields {
		for _, m := range details[f] {
			parts = append(parts, f+": "+m)
		}
	}
	return strings.Join(parts, "; ")
}

// retryableStatuses is the allow-list of statuses safe to resubmit.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// userMessage maps a status to the canned text shown to the user.
func userMessage(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "Please check your input and try again."
	case http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case http.StatusForbidden:
		return "You do not have permission to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusRequestTimeout:
		return "The request timed out. Please try again."
	case http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment and try again."
	default:
		if status >= 500 {
			return "The server is having trouble. Please try again shortly."
		}
		return "Something went wrong. Please try again."
	}
}

const networkUserMessage = "Cannot reach the server. Please check your connection and try again."

// Classify turns any raw error into a ProcessedError. Predicates are
// evaluated in order; the first match wins: network, auth, validation,
// server, business, unknown.
func Classify(err error) *ProcessedError {
	var pe *ProcessedError
	if errors.As(err, &pe) {
		return pe
	}

	var he *httpError
	if !errors.As(err, &he) {
		// No response arrived: connection failures, timeouts, DNS.
		return &ProcessedError{
			Type:        ErrorTypeNetwork,
			Message:     err.Error(),
			UserMessage: networkUserMessage,
			Retryable:   true,
			sentinel:    ErrNetwork,
		}
	}

	msg := bodyMessage(he.Body)
	if msg == "" {
		msg = he.Error()
	}

	switch {
	case he.Status == http.StatusUnauthorized || he.Status == http.StatusForbidden:
		return &ProcessedError{
			Type:         ErrorTypeAuth,
			Message:      msg,
			UserMessage:  userMessage(he.Status),
			Status:       he.Status,
			Retryable:    he.Status == http.StatusUnauthorized,
			RequiresAuth: true,
			sentinel:     ErrAuth,
		}

	case he.Status == http.StatusBadRequest || he.Status == http.StatusUnprocessableEntity:
		details := fieldErrors(he.Body)
		user := flattenFieldErrors(details)
		if user == "" {
			user = bodyMessage(he.Body)
		}
		if user == "" {
			user = userMessage(he.Status)
		}
		return &ProcessedError{
			Type:        ErrorTypeValidation,
			Message:     msg,
			UserMessage: user,
			Status:      he.Status,
			Details:     details,
			sentinel:    ErrValidation,
		}

	case he.Status >= 500 || he.Status == http.StatusRequestTimeout || he.Status == http.StatusTooManyRequests:
		return &ProcessedError{
			Type:        ErrorTypeServer,
			Message:     msg,
			UserMessage: userMessage(he.Status),
			Status:      he.Status,
			Retryable:   retryableStatuses[he.Status],
			sentinel:    ErrServer,
		}
	}

	var eb errorBody
	_ = json.Unmarshal(he.Body, &eb)
	if eb.Code != "" {
		return &ProcessedError{
			Type:        ErrorTypeBusiness,
			Message:     msg,
			UserMessage: userMessage(he.Status),
			Code:        eb.Code,
			Status:      he.Status,
			sentinel:    ErrBusiness,
		}
	}

	return &ProcessedError{
		Type:        ErrorTypeUnknown,
		Message:     msg,
		UserMessage: userMessage(he.Status),
		Status:      he.Status,
		sentinel:    ErrUnknown,
	}
}

// ErrorListener receives every classified error, synchronously, in
// registration order.
type ErrorListener func(*ProcessedError)

type listenerRegistry struct {
	mu   sync.Mutex
	next int
	ids  []int
	subs map[int]ErrorListener
}

func (r *listenerRegistry) add(fn ErrorListener) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = map[int]ErrorListener{}
	}
	r.next++
	id := r.next
	r.subs[id] = fn
	r.ids = append(r.ids, id)
	return id
}

func (r *listenerRegistry) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
}

// notify fires listeners in registration order. A panicking listener is
// logged and skipped so it cannot break delivery to the others.
func (r *listenerRegistry) notify(log *zap.Logger, pe *ProcessedError) {
	r.mu.Lock()
	ids := append([]int(nil), r.ids...)
	subs := make(map[int]ErrorListener, len(r.subs))
	for k, v := range r.subs {
		subs[k] = v
	}
	r.mu.Unlock()

	for _, id := range ids {
		fn, ok := subs[id]
		if !ok {
			continue
		}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("error listener panicked",
						zap.Int("listener", id), zap.Any("panic", rec))
				}
			}()
			fn(pe)
		}()
	}
}
