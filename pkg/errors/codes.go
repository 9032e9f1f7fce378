package errors

import "net/http"

// ErrorCode is a stable, machine-readable identifier for a failure category.
// Codes are grouped by module prefix: COMMON for platform-wide conditions and
// CHEM for the mechanism engine.
type ErrorCode string

// String returns the raw code value.
func (c ErrorCode) String() string {
	return string(c)
}

// ─────────────────────────────────────────────────────────────────────────────
// Common error codes
// ─────────────────────────────────────────────────────────────────────────────

const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"

	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessageQueue       ErrorCode = "COMMON_014"
	ErrCodeInvalidConfig      ErrorCode = "COMMON_017"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mechanism engine error codes
// ─────────────────────────────────────────────────────────────────────────────

const (
	// ErrCodeNotationEmpty is raised when a line notation is empty or holds
	// only whitespace. It is a user-input validation failure.
	ErrCodeNotationEmpty ErrorCode = "CHEM_001"

	// ErrCodeInvalidCondition is raised when a reaction-condition axis value
	// is not a declared member of its enum.
	ErrCodeInvalidCondition ErrorCode = "CHEM_002"

	// ErrCodeUnsupportedMechanism is raised when a mechanism label cannot be
	// resolved to a known mechanism.
	ErrCodeUnsupportedMechanism ErrorCode = "CHEM_003"

	ErrCodeAnalysisFailed ErrorCode = "CHEM_004"
	ErrCodeBatchTooLarge  ErrorCode = "CHEM_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeOK:                    http.StatusOK,
	CodeUnknown:               http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessageQueue:       http.StatusInternalServerError,
	ErrCodeInvalidConfig:      http.StatusInternalServerError,

	ErrCodeNotationEmpty:        http.StatusBadRequest,
	ErrCodeInvalidCondition:     http.StatusBadRequest,
	ErrCodeUnsupportedMechanism: http.StatusBadRequest,
	ErrCodeAnalysisFailed:       http.StatusInternalServerError,
	ErrCodeBatchTooLarge:        http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default user-facing messages.
var ErrorCodeMessage = map[ErrorCode]string{
	CodeOK:                    "success",
	CodeUnknown:               "unknown error",
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessageQueue:       "message queue error",
	ErrCodeInvalidConfig:      "invalid configuration",

	ErrCodeNotationEmpty:        "notation must not be empty",
	ErrCodeInvalidCondition:     "invalid reaction condition",
	ErrCodeUnsupportedMechanism: "unsupported mechanism",
	ErrCodeAnalysisFailed:       "reaction analysis failed",
	ErrCodeBatchTooLarge:        "batch exceeds the configured limit",
}

// HTTPStatusForCode returns the HTTP status for code, defaulting to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message registered for code.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return ErrorCodeMessage[CodeUnknown]
}

// IsClientError reports whether code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	return HTTPStatusForCode(code) >= 500
}

// ModuleForCode returns the module prefix of code ("COMMON", "CHEM", ...).
func ModuleForCode(code ErrorCode) string {
	s := string(code)
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			return s[:i]
		}
	}
	return s
}
