package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
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

// Capability and pipeline error taxonomy. Stage code wraps failures with
// these sentinels; the orchestrator and the retry policy branch on them
// via errors.Is, never on strings.
var (
	ErrValidation            = errors.New("validation failed")
	ErrUnreadableDocument    = errors.New("document is unreadable")
	ErrDocumentUnavailable   = errors.New("document extraction unavailable")
	ErrExtractionUnavailable = errors.New("table extraction unavailable")
	ErrOCRUnavailable        = errors.New("ocr unavailable")
	ErrAIUnavailable         = errors.New("ai analysis unavailable")
	ErrAIResponseMalformed   = errors.New("ai response malformed")
	ErrStorage               = errors.New("storage error")
	ErrDuplicateTask         = errors.New("duplicate task id")
	ErrCallback              = errors.New("callback delivery failed")
	ErrCancelled             = errors.New("run cancelled")
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidInput          = errors.New("invalid input")
)

// Retryable reports whether a run-level retry may help: transient
// capability failures only. Bad input files, malformed AI responses and
// storage conflicts are not retried automatically.
func Retryable(err error) bool {
	return errors.Is(err, ErrAIUnavailable) ||
		errors.Is(err, ErrDocumentUnavailable) ||
		errors.Is(err, ErrExtractionUnavailable) ||
		errors.Is(err, ErrOCRUnavailable)
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func FailedPreconditionError(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
