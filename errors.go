package appsheet

import (
	"errors"
	"fmt"
)

// Common errors used throughout the appsheet package
var (
	// ErrAuthentication is returned when the API rejects the access key (HTTP 401/403).
	ErrAuthentication = errors.New("authentication failed")
	// ErrValidation is returned for HTTP 400 responses and for local schema or row validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for HTTP 404 responses and for mock updates of a missing row.
	ErrNotFound = errors.New("not found")
	// ErrRateLimit is returned for HTTP 429 responses.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrNetwork is returned when no response was received at all.
	ErrNetwork = errors.New("network error")
	// ErrAPI is returned for any other non-2xx response.
	ErrAPI = errors.New("api error")

	// ErrDuplicateKey indicates an insert with a key value that already exists.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrMissingKeyValue indicates an insert whose row has no usable key value.
	ErrMissingKeyValue = errors.New("missing key value")

	// ErrUnresolvedPlaceholder indicates a ${VAR} placeholder with no value in the environment.
	ErrUnresolvedPlaceholder = errors.New("unresolved environment placeholder")
	// ErrSchemaValidation indicates the schema document is structurally incomplete.
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrUnknownConnection indicates a connection name not present in the schema.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrUnknownTable indicates a table name not present in the connection.
	ErrUnknownTable = errors.New("unknown table")
	// ErrNoRows indicates a find-one call that matched nothing.
	ErrNoRows = errors.New("no rows found")
)

// Machine-readable codes carried by APIError.
const (
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeRateLimit      = "RATE_LIMIT"
	CodeNetwork        = "NETWORK_ERROR"
	CodeAPI            = "API_ERROR"
)

// APIError is a classified failure of an Action call. StatusCode is zero
// when no response was received. Details holds the raw response payload
// for diagnostics.
type APIError struct {
	Code       string
	StatusCode int
	Message    string
	Details    any
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Code, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap maps the code back to its sentinel so errors.Is works.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case CodeAuthentication:
		return ErrAuthentication
	case CodeValidation:
		return ErrValidation
	case CodeNotFound:
		return ErrNotFound
	case CodeRateLimit:
		return ErrRateLimit
	case CodeNetwork:
		return ErrNetwork
	default:
		return ErrAPI
	}
}

// ClassifyStatus maps a terminal HTTP status to an APIError. A zero status
// means no response was received.
func ClassifyStatus(status int, message string, details any) *APIError {
	var code string

	switch {
	case status == 0:
		code = CodeNetwork
	case status == 401 || status == 403:
		code = CodeAuthentication
	case status == 400:
		code = CodeValidation
	case status == 404:
		code = CodeNotFound
	case status == 429:
		code = CodeRateLimit
	default:
		code = CodeAPI
	}

	return &APIError{Code: code, StatusCode: status, Message: message, Details: details}
}

// FieldError is a single row/field validation failure. It carries enough
// context for a consumer to batch-report violations in a multi-row call.
type FieldError struct {
	RowIndex int
	Field    string
	Type     FieldType
	Value    any
	Reason   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d field %q (%s): %s (got %v)", e.RowIndex, e.Field, e.Type, e.Reason, e.Value)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}
