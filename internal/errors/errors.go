package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrConfig        ErrorType = "CONFIG"
	ErrSourceRead    ErrorType = "SOURCE_READ"
	ErrWorkingCopy   ErrorType = "WORKING_COPY"
	ErrLedger        ErrorType = "LEDGER"
	ErrRunInProgress ErrorType = "RUN_IN_PROGRESS"
	ErrInternal      ErrorType = "INTERNAL"
)

// Process exit codes, one per error class
const (
	ExitSuccess     = 0
	ExitInternal    = 1
	ExitConfig      = 2
	ExitSourceRead  = 3
	ExitWorkingCopy = 4
	ExitLedger      = 5
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewConfigError creates a configuration error
func NewConfigError(message string, err error) *AppError {
	return New(ErrConfig, message, err)
}

// NewSourceReadError creates an activity source error
func NewSourceReadError(message string, err error) *AppError {
	return New(ErrSourceRead, message, err)
}

// NewWorkingCopyError creates a working copy (git) error
func NewWorkingCopyError(message string, err error) *AppError {
	return New(ErrWorkingCopy, message, err)
}

// NewLedgerError creates a durable state error
func NewLedgerError(message string, err error) *AppError {
	return New(ErrLedger, message, err)
}

// NewRunInProgressError is returned when a run is requested while another is active
func NewRunInProgressError() *AppError {
	return New(ErrRunInProgress, "a replay run is already in progress", nil)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// TypeOf returns the type of the outermost AppError in the chain
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

// Is reports whether err carries an AppError of the given type
func Is(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsSourceRead checks if the error is an activity source error
func IsSourceRead(err error) bool {
	return Is(err, ErrSourceRead)
}

// IsWorkingCopy checks if the error is a working copy error
func IsWorkingCopy(err error) bool {
	return Is(err, ErrWorkingCopy)
}

// IsLedger checks if the error is a durable state error
func IsLedger(err error) bool {
	return Is(err, ErrLedger)
}

// IsRunInProgress checks if the error reports an overlapping run
func IsRunInProgress(err error) bool {
	return Is(err, ErrRunInProgress)
}

// ExitCode maps an error to the process exit code for its class
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	t, ok := TypeOf(err)
	if !ok {
		return ExitInternal
	}
	switch t {
	case ErrConfig:
		return ExitConfig
	case ErrSourceRead:
		return ExitSourceRead
	case ErrWorkingCopy:
		return ExitWorkingCopy
	case ErrLedger:
		return ExitLedger
	default:
		return ExitInternal
	}
}
