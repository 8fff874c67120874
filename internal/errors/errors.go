package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"order-insights/internal/observability"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeData           ErrorCode = "DATA_ERROR"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError is the error type carried to the JSON envelope. Line is the 1-based
// CSV line of the offending row for data errors raised while parsing.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Line       int       `json:"line,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusFor(code),
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Cause = err
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

// Data reports a malformed or incomplete order source. Loads that fail with
// it are aborted before any analyzer runs.
func Data(message string) *AppError {
	return New(CodeData, message)
}

func DataWrap(err error, message string) *AppError {
	return Wrap(err, CodeData, message)
}

// DataAt reports a row that failed validation at the given CSV line.
func DataAt(line int, err error) *AppError {
	e := Wrap(err, CodeData, fmt.Sprintf("invalid order row at line %d", line))
	e.Line = line
	return e
}

// IsData reports whether err or anything it wraps is a data error.
func IsData(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == CodeData
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

func ServiceUnavailable(message string) *AppError {
	return New(CodeServiceUnavail, message)
}

func statusFor(code ErrorCode) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeData:
		return http.StatusUnprocessableEntity
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeServiceUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// WriteError writes err in the error envelope. Errors that are not an
// AppError anywhere in their chain become an opaque internal error.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Internal("An unexpected error occurred")
		appErr.Cause = err
	}

	// copy so a shared error value never carries another request's ID
	resp := *appErr
	resp.RequestID = observability.GetRequestID(r.Context())
	if resp.Code == CodeInternal {
		resp.Details = ""
	}

	level := slog.LevelError
	if resp.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	observability.Logger(r.Context(), logger).Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error_code", resp.Code,
		"error_message", resp.Message,
		"status_code", resp.StatusCode,
		"cause", resp.Cause,
	)

	writeJSON(w, logger, resp.StatusCode, ErrorResponse{Error: &resp})
}

func WriteSuccess(w http.ResponseWriter, logger *slog.Logger, data any) {
	writeJSON(w, logger, http.StatusOK, SuccessResponse{Data: data, Success: true})
}

// WriteCached is WriteSuccess with a Cache-Control header.
func WriteCached(w http.ResponseWriter, logger *slog.Logger, data any, cacheControl string) {
	w.Header().Set("Cache-Control", cacheControl)
	WriteSuccess(w, logger, data)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
