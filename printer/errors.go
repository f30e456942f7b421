package printer

import "fmt"

// Error codes for print failures
const (
	ErrCodeFrameUnavailable = "PRINT_FRAME_UNAVAILABLE"
	ErrCodeInvocationFailed = "PRINT_INVOCATION_FAILED"
	ErrCodePopupBlocked     = "POPUP_BLOCKED"
)

var (
	// ErrPrintFrameUnavailable matches any error with ErrCodeFrameUnavailable
	ErrPrintFrameUnavailable = &PrintError{Code: ErrCodeFrameUnavailable, Message: "print frame unavailable"}
	// ErrPrintInvocationFailed matches any error with ErrCodeInvocationFailed
	ErrPrintInvocationFailed = &PrintError{Code: ErrCodeInvocationFailed, Message: "print invocation failed"}
	// ErrPopupBlocked matches any error with ErrCodePopupBlocked
	ErrPopupBlocked = &PrintError{Code: ErrCodePopupBlocked, Message: "print window was blocked"}
)

// PrintError represents an error during print delivery
type PrintError struct {
	Code    string
	Message string
	Cause   error
}

func (e *PrintError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PrintError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a PrintError with the same code
func (e *PrintError) Is(target error) bool {
	t, ok := target.(*PrintError)
	return ok && t.Code == e.Code
}

// NewPrintError creates a new PrintError
func NewPrintError(code, message string, cause error) *PrintError {
	return &PrintError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
