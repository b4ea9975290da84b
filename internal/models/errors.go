package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a domain error for the caller
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindConflict            ErrorKind = "conflict"
	KindNotFound            ErrorKind = "not_found"
	KindAuthorization       ErrorKind = "authorization"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
)

// Error is a recoverable domain error. Errors with the same Kind and Code
// compare equal under errors.Is, so wrapped or re-created values still match
// the sentinels below.
type Error struct {
	Kind    ErrorKind         `json:"kind"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  []ValidationError `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// Is matches on kind and code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// ValidationError describes one invalid input field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

var (
	ErrDuplicateHandle     = &Error{Kind: KindConflict, Code: "duplicate_handle", Message: "username already taken"}
	ErrDuplicateEmail      = &Error{Kind: KindConflict, Code: "duplicate_email", Message: "email already registered"}
	ErrAlreadyVIP          = &Error{Kind: KindConflict, Code: "already_vip", Message: "account is already VIP"}
	ErrInvalidCredentials  = &Error{Kind: KindAuthorization, Code: "invalid_credentials", Message: "invalid username or password"}
	ErrLoginRequired       = &Error{Kind: KindAuthorization, Code: "login_required", Message: "login required"}
	ErrEmptyBody           = &Error{Kind: KindValidation, Code: "empty_body", Message: "comment body must not be empty"}
	ErrPasswordMismatch    = &Error{Kind: KindValidation, Code: "password_mismatch", Message: "passwords do not match"}
	ErrUserNotFound        = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrArticleNotFound     = &Error{Kind: KindNotFound, Code: "article_not_found", Message: "article not found"}
	ErrParentNotFound      = &Error{Kind: KindNotFound, Code: "parent_not_found", Message: "parent comment not found on this article"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Code: "insufficient_balance", Message: "wallet balance is too low"}
)

// NewValidationError builds a validation error from field errors
func NewValidationError(fields []ValidationError) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_input", Message: "invalid input", Fields: fields}
}

// KindOf returns the kind of a domain error, or "" for anything else
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
