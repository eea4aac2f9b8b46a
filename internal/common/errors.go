package common

import (
	"errors"
	"fmt"
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

// Error codes of the console's taxonomy.
const (
	CodeNetwork            = "NETWORK_ERROR"
	CodeFetch              = "FETCH_ERROR"
	CodeDecode             = "DECODE_ERROR"
	CodeUpload             = "UPLOAD_ERROR"
	CodeValidationStart    = "VALIDATION_START_ERROR"
	CodeDownload           = "DOWNLOAD_ERROR"
	CodeTemplateGeneration = "TEMPLATE_GENERATION_ERROR"
	CodeConfig             = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNetwork         = errors.New("network error")
	ErrNoJob           = errors.New("no job selected")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NetworkError wraps a transport or timeout failure.
func NetworkError(message string, cause error) *AppError {
	return NewAppError(CodeNetwork, message, errors.Join(ErrNetwork, cause))
}

func FetchError(message string, cause error) *AppError {
	return NewAppError(CodeFetch, message, cause)
}

func DownloadError(message string, cause error) *AppError {
	return NewAppError(CodeDownload, message, cause)
}

func TemplateGenerationError(message string, cause error) *AppError {
	return NewAppError(CodeTemplateGeneration, message, cause)
}

func ValidationStartError(message string, cause error) *AppError {
	return NewAppError(CodeValidationStart, message, cause)
}

func UploadError(message string, cause error) *AppError {
	return NewAppError(CodeUpload, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

func IsNetworkError(err error) bool { return errors.Is(err, ErrNetwork) }
