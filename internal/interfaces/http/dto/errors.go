package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeLockTimeout is used when a row lock could not be acquired in time
	ErrCodeLockTimeout = "ERR_LOCK_TIMEOUT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInsufficientStock is used when stock cannot cover a deduction
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeTransitionBlocked is used when a delivery transition would overdraw stock
	ErrCodeTransitionBlocked = "ERR_TRANSITION_BLOCKED"
)

// Unit and quantity error codes
const (
	// ErrCodeUnknownUnit is used when a unit is absent from the conversion table
	ErrCodeUnknownUnit = "ERR_UNKNOWN_UNIT"
	// ErrCodeUnitMismatch is used when a request unit differs from the product unit
	ErrCodeUnitMismatch = "ERR_UNIT_MISMATCH"
	// ErrCodeImpreciseQuantity is used when a quantity is below unit precision
	ErrCodeImpreciseQuantity = "ERR_IMPRECISE_QUANTITY"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidDeliveryFlags is used when legacy delivery booleans contradict
	ErrCodeInvalidDeliveryFlags = "ERR_INVALID_DELIVERY_FLAGS"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeLockTimeout:   http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeTransitionBlocked: http.StatusUnprocessableEntity,

	// Unit errors -> 400 Bad Request
	ErrCodeUnknownUnit:       http.StatusBadRequest,
	ErrCodeUnitMismatch:      http.StatusBadRequest,
	ErrCodeImpreciseQuantity: http.StatusBadRequest,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeInvalidInput:         http.StatusBadRequest,
	ErrCodeInvalidJSON:          http.StatusBadRequest,
	ErrCodeInvalidDeliveryFlags: http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"PRODUCT_NOT_FOUND":       ErrCodeNotFound,
	"DELIVERY_NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeAlreadyExists,
	"PRODUCT_EXISTS":          ErrCodeAlreadyExists,
	"DELIVERY_EXISTS":         ErrCodeAlreadyExists,
	"SALE_NUMBER_EXHAUSTED":   ErrCodeConflict,
	"CONCURRENCY_CONFLICT":    ErrCodeConflict,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_QUANTITY":        ErrCodeInvalidInput,
	"INVALID_THRESHOLD":       ErrCodeInvalidInput,
	"INVALID_CUSTOMER":        ErrCodeInvalidInput,
	"INVALID_PRODUCT_NAME":    ErrCodeInvalidInput,
	"INVALID_PRODUCT_UNIT":    ErrCodeInvalidInput,
	"INVALID_PRODUCT_PRICE":   ErrCodeInvalidInput,
	"EMPTY_SALE":              ErrCodeInvalidInput,
	"EMPTY_DEDUCTION":         ErrCodeInvalidInput,
	"MIXED_UNITS":             ErrCodeUnitMismatch,
	"INVALID_STATE":           ErrCodeInvalidState,
	"INVALID_DELIVERY_STATUS": ErrCodeInvalidState,
	"SALE_CANCELLED":          ErrCodeInvalidState,
	"SALE_ALREADY_CANCELLED":  ErrCodeInvalidState,
	"INSUFFICIENT_STOCK":      ErrCodeInsufficientStock,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
