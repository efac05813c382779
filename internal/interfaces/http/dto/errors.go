package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeBusinessRule      = "ERR_BUSINESS_RULE"
	ErrCodeExceedsReturnable = "ERR_EXCEEDS_RETURNABLE_QUANTITY"
	ErrCodeSourceNotEligible = "ERR_SOURCE_NOT_ELIGIBLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeExceedsReturnable: http.StatusUnprocessableEntity,
	ErrCodeSourceNotEligible: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                   ErrCodeNotFound,
	"ALREADY_EXISTS":              ErrCodeAlreadyExists,
	"VALIDATION":                  ErrCodeValidation,
	"INVALID_STATE":               ErrCodeInvalidState,
	"UNAUTHORIZED":                ErrCodeUnauthorized,
	"FORBIDDEN":                   ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":        ErrCodeConcurrencyConflict,
	"EXCEEDS_RETURNABLE_QUANTITY": ErrCodeExceedsReturnable,
	"SOURCE_NOT_ELIGIBLE":         ErrCodeSourceNotEligible,
	"INVALID_CREDENTIALS":         ErrCodeUnauthorized,
	"ACCOUNT_LOCKED":              ErrCodeForbidden,
	"ACCOUNT_DEACTIVATED":         ErrCodeForbidden,
	"INVALID_PASSWORD":            ErrCodeUnauthorized,
	"INVALID_USERNAME":            ErrCodeValidation,
	"INVALID_DISPLAY_NAME":        ErrCodeValidation,
	"ALREADY_ACTIVE":              ErrCodeInvalidState,
	"ALREADY_DEACTIVATED":         ErrCodeInvalidState,
	"PASSWORD_HASH_ERROR":         ErrCodeInternal,
	"INTERNAL_ERROR":              ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
