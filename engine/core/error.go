package core

import (
	"fmt"
	"maps"
)

// Error is the coded error carried across engine packages. Code is a stable
// machine readable identifier; Details holds structured context for logs and
// problem responses.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// NewError wraps err with a code and optional details. A nil err is allowed;
// the code then doubles as the message.
func NewError(err error, code string, details map[string]any) *Error {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    code,
		Message: msg,
		Details: details,
		Err:     err,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" || e.Message == e.Code {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetail returns a copy of e with key set in its details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	maps.Copy(details, e.Details)
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// AsMap renders the error for structured logging and API payloads.
func (e *Error) AsMap() map[string]any {
	if e == nil {
		return nil
	}
	out := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		out["details"] = e.Details
	}
	return out
}
