// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Input errors
	ErrCodeInvalidInput          ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidFilterCriteria ErrorCode = "INVALID_FILTER_CRITERIA"

	// Query outcomes
	ErrCodeEndpointQueryFailed ErrorCode = "ENDPOINT_QUERY_FAILED"
	ErrCodeNoDataAvailable     ErrorCode = "NO_DATA_AVAILABLE"
	ErrCodeNoHyloggerBoreholes ErrorCode = "NO_HYLOGGER_BOREHOLES"
	ErrCodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"

	// Infrastructure
	ErrCodeCatalogUnavailable            ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeCacheUnavailable              ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidInputError creates a non-retryable error for malformed job variables.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job variables",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilterCriteriaError wraps a criteria rendering failure.
func NewInvalidFilterCriteriaError(err error) *StandardError {
	return newError(ErrCodeInvalidFilterCriteria, "Filter criteria cannot be rendered", err, false)
}

// NewEndpointQueryFailedError describes a single failed endpoint. It is
// attached to results as data and never thrown.
func NewEndpointQueryFailedError(endpoint string, err error) *StandardError {
	stdErr := newError(ErrCodeEndpointQueryFailed, fmt.Sprintf("Query to '%s' failed", endpoint), err, true)
	stdErr.Metadata = map[string]interface{}{"endpoint": endpoint}
	return stdErr
}

// NewNoDataAvailableError reports an aggregate without any successful endpoint.
func NewNoDataAvailableError(queried int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoDataAvailable,
		Message:   "No endpoint returned data",
		Details:   fmt.Sprintf("%d endpoints queried", queried),
		Retryable: false,
		Metadata:  map[string]interface{}{"queried": queried},
		Timestamp: time.Now().UTC(),
	}
}

func NewNoHyloggerBoreholesError(err error) *StandardError {
	return newError(ErrCodeNoHyloggerBoreholes, "Unable to identify any boreholes with Hylogger data", err, false)
}

func NewServiceUnavailableError(service string, err error) *StandardError {
	return newError(ErrCodeServiceUnavailable, fmt.Sprintf("%s is not available", service), err, false)
}

// NewCatalogUnavailableError creates a retryable catalog lookup error.
func NewCatalogUnavailableError(err error) *StandardError {
	return newError(ErrCodeCatalogUnavailable, "Endpoint catalog unavailable", err, true)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Failed to connect to database", err, true)
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Failed to connect to Elasticsearch", err, true)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Cache unavailable", err, true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:                  "INVALID_INPUT",
	ErrCodeInvalidFilterCriteria:         "INVALID_FILTER_CRITERIA",
	ErrCodeEndpointQueryFailed:           "ENDPOINT_QUERY_FAILED",
	ErrCodeNoDataAvailable:               "NO_DATA_AVAILABLE",
	ErrCodeNoHyloggerBoreholes:           "NO_HYLOGGER_BOREHOLES",
	ErrCodeServiceUnavailable:            "SERVICE_UNAVAILABLE",
	ErrCodeCatalogUnavailable:            "CATALOG_UNAVAILABLE",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeCacheUnavailable:              "CACHE_UNAVAILABLE",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeElasticsearchConnectionFailed:
		return 3

	case ErrCodeCacheUnavailable:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "ENDPOINT") || strings.Contains(codeStr, "NO_"):
		return "QUERY"
	case strings.Contains(codeStr, "CATALOG") || strings.Contains(codeStr, "DATABASE") ||
		strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "CACHE"):
		return "CATALOG"
	case strings.Contains(codeStr, "UNAVAILABLE"):
		return "SERVICE"
	default:
		return "OTHER"
	}
}
