package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "DWH1001"
	ErrCodeConnectionTimeout    ErrorCode = "DWH1002"
	ErrCodeAuthenticationFailed ErrorCode = "DWH1003"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "DWH2001"
	ErrCodeConfigInvalid  ErrorCode = "DWH2002"
	ErrCodeConfigMissing  ErrorCode = "DWH2003"

	// Schema errors (3xxx)
	ErrCodeSchemaDDL     ErrorCode = "DWH3001"
	ErrCodeSchemaInvalid ErrorCode = "DWH3002"

	// Load errors (4xxx)
	ErrCodeCopyFailed         ErrorCode = "DWH4001"
	ErrCodeStorageUnreachable ErrorCode = "DWH4002"
	ErrCodeCopySpecInvalid    ErrorCode = "DWH4003"

	// Transform errors (5xxx)
	ErrCodeTransformFailed ErrorCode = "DWH5001"

	// Provisioning errors (6xxx)
	ErrCodeClusterCreate    ErrorCode = "DWH6001"
	ErrCodeClusterDelete    ErrorCode = "DWH6002"
	ErrCodeClusterTimeout   ErrorCode = "DWH6003"
	ErrCodeClusterFailed    ErrorCode = "DWH6004"
	ErrCodeClusterConflict  ErrorCode = "DWH6005"
	ErrCodeIAMRole          ErrorCode = "DWH6006"
	ErrCodeEndpointNotReady ErrorCode = "DWH6007"

	// Validation errors (7xxx)
	ErrCodeValidationFailed ErrorCode = "DWH7001"
	ErrCodeInvalidInput     ErrorCode = "DWH7002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "DWH9001"
	ErrCodeTimeout  ErrorCode = "DWH9002"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL"
	SeverityError    ErrorSeverity = "ERROR"
	SeverityWarning  ErrorSeverity = "WARNING"
	SeverityInfo     ErrorSeverity = "INFO"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	if ae, ok := err.(*AppError); ok {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a warehouse connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check that the cluster is in the available state",
			"Verify the endpoint host and port in the configuration",
			"Check the cluster security group allows inbound connections",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'dwhpipe setup' to reconfigure",
		)
}

// SchemaError creates a DDL execution error
func SchemaError(message string, table string, cause error) *AppError {
	return Wrap(cause, ErrCodeSchemaDDL, message).
		WithContext("table", table).
		WithSuggestions(
			"Verify the database user has DDL privileges",
			"Rerun the full schema reset to recover from partial state",
		)
}

// LoadError creates a bulk-copy error
func LoadError(message string, table, path string, cause error) *AppError {
	return Wrap(cause, ErrCodeCopyFailed, message).
		WithContext("table", table).
		WithContext("path", path).
		WithSuggestions(
			"Check stl_load_errors for per-row diagnostics",
			"Verify the IAM role can read the source prefix",
		)
}

// TransformError creates a transformation error
func TransformError(message string, table string, cause error) *AppError {
	return Wrap(cause, ErrCodeTransformFailed, message).
		WithContext("table", table).
		WithSuggestions(
			"Dimension inserts are conflict-skipping; the step is safe to rerun",
		).
		AsRecoverable()
}

// ProvisioningError creates a cluster provisioning error
func ProvisioningError(code ErrorCode, message string, cluster string, cause error) *AppError {
	err := New(code, message)
	err.Cause = cause
	return err.
		WithContext("cluster", cluster).
		WithSuggestions(
			"Check the cluster status in the AWS console",
			"Provisioning failures are not retried automatically",
		)
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}
