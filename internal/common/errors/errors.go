// Package errors provides standardized error handling for skill invocations.
package errors

import (
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
	ErrCodeInputInsufficient ErrorCode = "INPUT_INSUFFICIENT"

	ErrCodeDatasetNotFound ErrorCode = "DATASET_NOT_FOUND"
	ErrCodeTableNotFound   ErrorCode = "TABLE_NOT_FOUND"
	ErrCodeColumnNotFound  ErrorCode = "COLUMN_NOT_FOUND"

	ErrCodeWorkspaceConnectionFailed ErrorCode = "WORKSPACE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed      ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeModelCommitFailed         ErrorCode = "MODEL_COMMIT_FAILED"
	ErrCodeCredentialsUnavailable    ErrorCode = "CREDENTIALS_UNAVAILABLE"

	ErrCodeMemoryStoreSaveFailed   ErrorCode = "MEMORY_STORE_SAVE_FAILED"
	ErrCodeMemoryStoreSearchFailed ErrorCode = "MEMORY_STORE_SEARCH_FAILED"

	ErrCodeNotificationPublishFailed ErrorCode = "NOTIFICATION_PUBLISH_FAILED"

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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another *StandardError by code, so a bare &StandardError{Code: X}
// can be used as a target with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
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

func newError(code ErrorCode, message, details string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInputInsufficientError reports the first missing or empty parameter.
func NewInputInsufficientError(parameter string) *StandardError {
	return newError(ErrCodeInputInsufficient, fmt.Sprintf("Missing variable %s.", parameter),
		fmt.Sprintf("parameter: %s", parameter), nil).
		WithMetadata("parameter", parameter)
}

// NewDatasetNotFoundError reports a dataset name lookup with no match.
func NewDatasetNotFoundError(dataset, workspace string) *StandardError {
	return newError(ErrCodeDatasetNotFound,
		fmt.Sprintf("Dataset %s not found in workspace %s.", dataset, workspace), "", nil).
		WithMetadata("dataset", dataset).
		WithMetadata("workspace", workspace)
}

// NewTableNotFoundError reports a table name lookup with no match.
func NewTableNotFoundError(table, dataset string) *StandardError {
	return newError(ErrCodeTableNotFound,
		fmt.Sprintf("Table %s not found in dataset %s.", table, dataset), "", nil).
		WithMetadata("table", table).
		WithMetadata("dataset", dataset)
}

// NewColumnNotFoundError reports a column name lookup with no match.
func NewColumnNotFoundError(column, table string) *StandardError {
	return newError(ErrCodeColumnNotFound,
		fmt.Sprintf("Column %s not found in table %s.", column, table), "", nil).
		WithMetadata("column", column).
		WithMetadata("table", table)
}

// NewWorkspaceConnectionFailedError wraps a failure to open a workspace connection.
func NewWorkspaceConnectionFailedError(workspace string, err error) *StandardError {
	return newError(ErrCodeWorkspaceConnectionFailed, "Workspace connection failed",
		fmt.Sprintf("workspace: %s, error: %v", workspace, err), err).
		WithMetadata("workspace", workspace)
}

// NewQueryExecutionFailedError wraps a failed read against the remote model.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Remote model query failed",
		fmt.Sprintf("query: %s, error: %v", query, err), err)
}

// NewModelCommitFailedError wraps a failed model mutation commit. The remote
// side may hold a partial commit, so the caller has to intervene.
func NewModelCommitFailedError(dataset string, err error) *StandardError {
	return newError(ErrCodeModelCommitFailed, "Model commit failed",
		fmt.Sprintf("dataset: %s, error: %v", dataset, err), err).
		WithMetadata("dataset", dataset)
}

// NewCredentialsUnavailableError wraps a failure to obtain an access token.
func NewCredentialsUnavailableError(err error) *StandardError {
	return newError(ErrCodeCredentialsUnavailable, "Credentials unavailable", err.Error(), err)
}

// NewMemoryStoreSaveFailedError wraps a failed memory record write.
func NewMemoryStoreSaveFailedError(collection string, err error) *StandardError {
	return newError(ErrCodeMemoryStoreSaveFailed, "Memory store save failed",
		fmt.Sprintf("collection: %s, error: %v", collection, err), err)
}

// NewMemoryStoreSearchFailedError wraps a failed similarity search.
func NewMemoryStoreSearchFailedError(collection string, err error) *StandardError {
	return newError(ErrCodeMemoryStoreSearchFailed, "Memory store search failed",
		fmt.Sprintf("collection: %s, error: %v", collection, err), err)
}

// NewNotificationPublishFailedError wraps a failed change notification.
func NewNotificationPublishFailedError(err error) *StandardError {
	return newError(ErrCodeNotificationPublishFailed, "Notification publish failed", err.Error(), err)
}

// NewInternalError normalizes an unexpected error.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), err)
}

// ==========================
// 4. Classification
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputInsufficient:         "INPUT_INSUFFICIENT",
	ErrCodeDatasetNotFound:           "DATASET_NOT_FOUND",
	ErrCodeTableNotFound:             "TABLE_NOT_FOUND",
	ErrCodeColumnNotFound:            "COLUMN_NOT_FOUND",
	ErrCodeWorkspaceConnectionFailed: "WORKSPACE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:      "QUERY_EXECUTION_FAILED",
	ErrCodeModelCommitFailed:         "MODEL_COMMIT_FAILED",
	ErrCodeCredentialsUnavailable:    "CREDENTIALS_UNAVAILABLE",
	ErrCodeMemoryStoreSaveFailed:     "MEMORY_STORE_SAVE_FAILED",
	ErrCodeMemoryStoreSearchFailed:   "MEMORY_STORE_SEARCH_FAILED",
	ErrCodeNotificationPublishFailed: "NOTIFICATION_PUBLISH_FAILED",
}

// GetRetryCount returns the automatic retry budget for a code. Every remote
// call is single-attempt, so this is always zero.
func GetRetryCount(code ErrorCode) int {
	return 0
}

// ConvertToBPMNError maps a StandardError onto a BPMN error for the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   GetRetryCount(stdErr.Code),
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"errorCategory":     GetErrorCategory(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeInputInsufficient:
		return "VALIDATION"
	case strings.HasSuffix(codeStr, "_NOT_FOUND"):
		return "NOT_FOUND"
	case strings.HasPrefix(codeStr, "MEMORY_STORE"):
		return "MEMORY"
	case strings.Contains(codeStr, "WORKSPACE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "COMMIT") || strings.Contains(codeStr, "CREDENTIALS"):
		return "REMOTE"
	default:
		return "OTHER"
	}
}

// AsStandardError unwraps err to a *StandardError, normalizing anything else
// into an INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	for e := err; e != nil; {
		if stdErr, ok := e.(*StandardError); ok {
			return stdErr
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return NewInternalError(err)
}

// CodeOf returns the error code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsStandardError(err).Code
}

// IsNotFound reports whether err is one of the name lookup misses.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return GetErrorCategory(CodeOf(err)) == "NOT_FOUND"
}
