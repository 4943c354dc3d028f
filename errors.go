package stackauth

import (
	"errors"
	"fmt"
)

// Code classifies errors raised while talking to an identity provider
type Code string

const (
	CodeCommunication     Code = "COMMUNICATION"
	CodeMalformedResponse Code = "MALFORMED_RESPONSE"
	CodeEmptyResponse     Code = "EMPTY_RESPONSE"
	CodeConfiguration     Code = "CONFIGURATION"
	CodeOAuth             Code = "OAUTH_ERROR"
)

// Error is a coded error with an optional underlying cause
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code so that sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewError creates an Error with the given code and message
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates an Error with the given code and message around err
func WrapError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	// ErrCommunication is returned when the provider could not be reached or
	// its response could not be read
	ErrCommunication = NewError(CodeCommunication, "failed to fetch user profile")

	// ErrMalformedResponse is returned when the provider response is not valid JSON
	ErrMalformedResponse = NewError(CodeMalformedResponse, "failed to parse user profile")

	// ErrEmptyResponse is returned when the provider answered with JSON that
	// carries no usable account item
	ErrEmptyResponse = NewError(CodeEmptyResponse, "empty user profile response")

	// ErrConfiguration is returned when a strategy is constructed with invalid options
	ErrConfiguration = NewError(CodeConfiguration, "invalid configuration")
)

// OAuthError carries an error reported by the provider through the
// redirect query string (error, error_description, error_uri).
type OAuthError struct {
	ErrorCode   string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error %s: %s", e.ErrorCode, e.Description)
	}
	return "oauth error " + e.ErrorCode
}

// Is lets errors.Is(err, ErrOAuth) match any OAuthError
func (e *OAuthError) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == CodeOAuth
	}
	return false
}

// ErrOAuth matches any *OAuthError via errors.Is
var ErrOAuth = NewError(CodeOAuth, "provider reported an oauth error")
