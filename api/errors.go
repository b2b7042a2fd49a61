package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type ErrorKind string

const (
	KindNetwork      ErrorKind = "network"
	KindUnauthorized ErrorKind = "unauthorized"
	KindValidation   ErrorKind = "validation"
	KindServer       ErrorKind = "server"
	KindDomain       ErrorKind = "domain"
	KindUnknown      ErrorKind = "unknown"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the classified failure of a request. Message is meant to be shown
// to the user as is.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// AsError converts any error into an *Error, keeping classified errors as
// they are.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}

func DomainError(msg string, err error) *Error {
	return &Error{Kind: KindDomain, Message: msg, Err: err}
}

// errorBody accepts the shapes the API and its validators produce:
// {message|error, errors:[{field|path|param, message|msg}]} or
// {message|error, errors:{field: msg | {message|msg}}}.
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

type fieldEntry struct {
	Field   string `json:"field"`
	Path    string `json:"path"`
	Param   string `json:"param"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

func classify(status int, body []byte) *Error {
	e := &Error{Status: status}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
	case status == http.StatusForbidden || status == http.StatusNotFound || status == http.StatusConflict:
		e.Kind = KindDomain
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindUnknown
	}

	var parsed errorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		e.Message = firstNonEmpty(parsed.Message, parsed.Error)
		e.Fields = parseFieldErrors(parsed.Errors)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if e.Message == "" {
		e.Message = "Request failed"
	}
	return e
}

// parseFieldErrors reads the errors member as a list of entries or as an
// object keyed by field. Anything else yields no field errors. Object keys
// come back sorted.
func parseFieldErrors(raw json.RawMessage) []FieldError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var list []fieldEntry
		if json.Unmarshal(raw, &list) != nil {
			return nil
		}
		out := make([]FieldError, 0, len(list))
		for _, fe := range list {
			out = append(out, FieldError{
				Field:   firstNonEmpty(fe.Field, fe.Path, fe.Param),
				Message: firstNonEmpty(fe.Message, fe.Msg),
			})
		}
		return out
	case '{':
		var byField map[string]json.RawMessage
		if json.Unmarshal(raw, &byField) != nil {
			return nil
		}
		keys := make([]string, 0, len(byField))
		for k := range byField {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]FieldError, 0, len(keys))
		for _, k := range keys {
			out = append(out, FieldError{Field: k, Message: fieldMessageOf(byField[k])})
		}
		return out
	}
	return nil
}

func fieldMessageOf(raw json.RawMessage) string {
	var msg string
	if json.Unmarshal(raw, &msg) == nil {
		return msg
	}
	var fe fieldEntry
	if json.Unmarshal(raw, &fe) == nil {
		return firstNonEmpty(fe.Message, fe.Msg)
	}
	return string(raw)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
