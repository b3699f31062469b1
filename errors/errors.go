package errors

import (
	"fmt"
	"net/http"

	"github.com/AgriPilot/agripilot-backend/logger"
)

type ErrorType string

const (
	ValidationError              ErrorType = "VALIDATION_ERROR"
	NotFoundError                ErrorType = "NOT_FOUND"
	AuthError                    ErrorType = "AUTHENTICATION_ERROR"
	ForbiddenError               ErrorType = "FORBIDDEN"
	DatabaseError                ErrorType = "DATABASE_ERROR"
	ServerError                  ErrorType = "SERVER_ERROR"
	ConflictError                ErrorType = "CONFLICT"
	ExternalServiceError         ErrorType = "EXTERNAL_SERVICE_ERROR"
	InvalidSourceTransitionError ErrorType = "INVALID_SOURCE_TRANSITION"
	QueueFullError               ErrorType = "QUEUE_FULL"
	RateLimitError               ErrorType = "RATE_LIMIT_EXCEEDED"
)

// AppError is the structured application error carried through gin's error
// chain and rendered by the error-handler middleware.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped raw error to errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the HTTP status for the error, deriving it from the
// error type when it was not set explicitly.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func AuthenticationFailed(message string) *AppError {
	return &AppError{
		Type:       AuthError,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string, details string) *AppError {
	return &AppError{
		Type:       ForbiddenError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusForbidden,
	}
}

func NewDatabaseError(err error) *AppError {
	// Log the original error but return a sanitized message.
	logger.GetLogger().Errorw("Database error", "error", err)
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewConflictError(message string, detail string) *AppError {
	return &AppError{
		Type:       ConflictError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusConflict,
	}
}

// Domain constructors

func FarmNotFound(id string) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    "Farm not found",
		Detail:     fmt.Sprintf("Farm ID: %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func DocumentNotFound(id string) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    "Document not found",
		Detail:     fmt.Sprintf("Document ID: %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ExtractionNotFound(id string) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    "Extraction not found",
		Detail:     fmt.Sprintf("Extraction ID: %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func SubsidyNotFound(id string) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    "Subsidy not found",
		Detail:     fmt.Sprintf("Subsidy ID: %s", id),
		HTTPStatus: http.StatusNotFound,
	}
}

// InvalidSourceTransition reports an extracted-field source move that the
// transition table does not allow.
func InvalidSourceTransition(current, next string) *AppError {
	return &AppError{
		Type:       InvalidSourceTransitionError,
		Message:    "Invalid field source transition",
		Detail:     fmt.Sprintf("Cannot transition from %s to %s", current, next),
		HTTPStatus: http.StatusBadRequest,
	}
}

// ExternalServiceFailed reports a failed call to an edge function or other
// remote collaborator.
func ExternalServiceFailed(service string, err error) *AppError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &AppError{
		Type:       ExternalServiceError,
		Message:    fmt.Sprintf("%s call failed", service),
		Detail:     detail,
		HTTPStatus: http.StatusBadGateway,
		Raw:        err,
	}
}

// RateLimitExceeded reports a request rejected by the rate limiter.
// retryAfterSeconds tells the caller when the window resets.
func RateLimitExceeded(message string, retryAfterSeconds int) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    message,
		Detail:     fmt.Sprintf("Retry after %d seconds", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// PipelineQueueFull reports a pipeline submission rejected because the
// worker queue is at capacity.
func PipelineQueueFull() *AppError {
	return &AppError{
		Type:       QueueFullError,
		Message:    "Pipeline queue is full",
		Detail:     "Retry once running jobs drain",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError, InvalidSourceTransitionError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case AuthError:
		return http.StatusUnauthorized
	case ForbiddenError:
		return http.StatusForbidden
	case ConflictError:
		return http.StatusConflict
	case ExternalServiceError:
		return http.StatusBadGateway
	case QueueFullError:
		return http.StatusServiceUnavailable
	case RateLimitError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
