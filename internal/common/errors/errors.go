// Package errors provides standardized error handling for BPMN workflow integration.
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
	// AI gateway errors. Provider errors are recovered via the fallback
	// chain; the chain-exhausted error is the aggregate raised when every
	// configured (provider, model) pair failed.
	ErrCodeAIConfiguration  ErrorCode = "AI_CONFIGURATION_ERROR"
	ErrCodeAIProviderFailed ErrorCode = "AI_PROVIDER_FAILED"
	ErrCodeAIChainExhausted ErrorCode = "AI_CHAIN_EXHAUSTED"
	ErrCodeAIResponseParse  ErrorCode = "AI_RESPONSE_PARSE_FAILED"

	// Assessment pipeline errors.
	ErrCodeDataIntegrity    ErrorCode = "DATA_INTEGRITY_ERROR"
	ErrCodeAssessmentFailed ErrorCode = "ASSESSMENT_FAILED"

	// Conversation/tool errors.
	ErrCodePermissionDenied    ErrorCode = "PERMISSION_DENIED"
	ErrCodeToolNotFound        ErrorCode = "TOOL_NOT_FOUND"
	ErrCodeToolArgumentInvalid ErrorCode = "TOOL_ARGUMENT_INVALID"
	ErrCodeToolExecutionFailed ErrorCode = "TOOL_EXECUTION_FAILED"

	// Database errors.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeInvalidQueryType         ErrorCode = "INVALID_QUERY_TYPE"
	ErrCodeDatabaseUpsertFailed     ErrorCode = "DATABASE_UPSERT_FAILED"

	// Search errors.
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	// Notification errors.
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
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

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewAIConfigurationError creates a non-retryable configuration error for a
// use case with no configured provider routes.
func NewAIConfigurationError(useCase string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIConfiguration,
		Message:   "No AI provider configured for use case",
		Details:   fmt.Sprintf("useCase: %s", useCase),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAIProviderFailedError creates a retryable single-provider failure.
func NewAIProviderFailedError(provider, model string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIProviderFailed,
		Message:   "AI provider call failed",
		Details:   fmt.Sprintf("provider: %s, model: %s, error: %s", provider, model, err.Error()),
		Retryable: true,
		Metadata: map[string]interface{}{
			"provider": provider,
			"model":    model,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewAIChainExhaustedError creates a retryable aggregate failure raised when
// every configured (provider, model) pair for a use case has failed.
func NewAIChainExhaustedError(useCase string, attempts []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIChainExhausted,
		Message:   "All configured AI providers failed",
		Details:   fmt.Sprintf("useCase: %s, attempts: [%s]", useCase, strings.Join(attempts, "; ")),
		Retryable: true,
		Metadata: map[string]interface{}{
			"useCase":  useCase,
			"attempts": attempts,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewAIResponseParseError creates a non-retryable model-output parse error.
// In per-requirement contexts callers recover with a zero-score default
// instead of surfacing this.
func NewAIResponseParseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIResponseParse,
		Message:   "Malformed AI model response",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataIntegrityError creates a fatal, non-retryable error for a missing
// registration/profile/journey row. The pipeline aborts before any writes.
func NewDataIntegrityError(entity, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataIntegrity,
		Message:   "Required row missing",
		Details:   fmt.Sprintf("entity: %s, id: %s", entity, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssessmentFailedError creates a non-retryable assessment failure.
func NewAssessmentFailedError(registrationID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssessmentFailed,
		Message:   "Registration assessment failed",
		Details:   fmt.Sprintf("registrationId: %s, error: %s", registrationID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPermissionDeniedError creates a non-retryable tool permission error.
// The conversation continues; the denial is surfaced as a tool result.
func NewPermissionDeniedError(toolName, tier string) *StandardError {
	return &StandardError{
		Code:      ErrCodePermissionDenied,
		Message:   "Tool call outside caller's access tier",
		Details:   fmt.Sprintf("tool: %s, requiredAccess: %s", toolName, tier),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolNotFoundError creates a non-retryable unknown-tool error.
func NewToolNotFoundError(toolName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeToolNotFound,
		Message:   "Unknown tool",
		Details:   fmt.Sprintf("tool: %s", toolName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolArgumentInvalidError creates a non-retryable argument validation error.
func NewToolArgumentInvalidError(toolName, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeToolArgumentInvalid,
		Message:   "Tool arguments failed schema validation",
		Details:   fmt.Sprintf("tool: %s, %s", toolName, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolExecutionFailedError creates a retryable tool execution error.
func NewToolExecutionFailedError(toolName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeToolExecutionFailed,
		Message:   "Tool execution failed",
		Details:   fmt.Sprintf("tool: %s, error: %s", toolName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidQueryTypeError creates a non-retryable invalid query type error.
func NewInvalidQueryTypeError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQueryType,
		Message:   "Unsupported query type",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseUpsertFailedError creates a retryable upsert error.
func NewDatabaseUpsertFailedError(table string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseUpsertFailed,
		Message:   "Database upsert operation failed",
		Details:   fmt.Sprintf("table: %s, error: %s", table, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Elasticsearch query error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Elasticsearch query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexNotFound,
		Message:   "Elasticsearch index not found",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the retry count for retryable errors.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseUpsertFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeToolExecutionFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2 // Partial retry for timeouts

	case ErrCodeAIChainExhausted,
		ErrCodeAIProviderFailed:
		return 1 // As per BPMN boundary event

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN error codes are identical to the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
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

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AI_"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TOOL") || strings.Contains(codeStr, "PERMISSION"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "ASSESSMENT") || strings.Contains(codeStr, "DATA_INTEGRITY"):
		return "ASSESSMENT"
	default:
		return "OTHER"
	}
}
