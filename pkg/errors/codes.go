package errors

import "fmt"

// ErrorCode represents a unique identifier for specific error conditions in netclock.
type ErrorCode int

const (
	ErrCodeUnknown       ErrorCode = 1000
	ErrCodeConfigInvalid ErrorCode = 1001

	// Bring-up: fatal initialization steps
	ErrCodeStackInit   ErrorCode = 2001
	ErrCodeEventLoop   ErrorCode = 2002
	ErrCodeStation     ErrorCode = 2003
	ErrCodeLinkInit    ErrorCode = 2004
	ErrCodeRegister    ErrorCode = 2005
	ErrCodeCredentials ErrorCode = 2006
	ErrCodeLinkStart   ErrorCode = 2007

	// Bring-up: connection wait
	ErrCodeConnectTimeout ErrorCode = 3001

	// Time sync (logged, never escalated)
	ErrCodeTimeSyncStart ErrorCode = 4001
)

// NetclockError is a custom error type that provides structured error information,
// including an error code, the operation being performed, and the underlying cause.
type NetclockError struct {
	// Code is the specific error code.
	Code ErrorCode
	// Msg is a human-readable description of the error.
	Msg string
	// Operation describes the action being performed when the error occurred.
	Operation string
	// Err is the underlying error that caused this error, if any.
	Err error
}

// Error returns a formatted string representation of the error.
func (e *NetclockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %s (cause: %v)", e.Code, e.Operation, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Operation, e.Msg)
}

// Unwrap returns the underlying error.
func (e *NetclockError) Unwrap() error {
	return e.Err
}

// New creates a new NetclockError with the specified code, operation, message, and underlying error.
func New(code ErrorCode, op, msg string, err error) error {
	return &NetclockError{
		Code:      code,
		Msg:       msg,
		Operation: op,
		Err:       err,
	}
}

// CodeOf extracts the code of the outermost NetclockError in err's chain.
// It returns ErrCodeUnknown when there is none.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if ne, ok := err.(*NetclockError); ok {
			return ne.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrCodeUnknown
}

// Personal.AI order the ending
