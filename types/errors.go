package types

import (
	"errors"
	"fmt"
)

// HopperError is the error type surfaced by every component.
type HopperError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *HopperError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HopperError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrWalletUnavailable   = "WALLET_UNAVAILABLE"
	ErrUserRejected        = "USER_REJECTED"
	ErrUnsupportedChain    = "UNSUPPORTED_CHAIN"
	ErrStorageUnavailable  = "STORAGE_UNAVAILABLE"
	ErrInvalidDocument     = "INVALID_DOCUMENT"
	ErrQuoteUnavailable    = "QUOTE_UNAVAILABLE"
	ErrSubmissionRejected  = "SUBMISSION_REJECTED"
	ErrPollingTransient    = "POLLING_TRANSIENT"
	ErrUnconfirmedTimeout  = "UNCONFIRMED_TIMEOUT"
	ErrTransactionReverted = "TRANSACTION_REVERTED"
	ErrPreferencesNotFound = "PREFERENCES_NOT_FOUND"
	ErrUnknownAsset        = "UNKNOWN_ASSET"
	ErrInvalidIntent       = "INVALID_INTENT"
	ErrConfigError         = "CONFIG_ERROR"
)

// NewError builds a HopperError, optionally wrapping a cause.
func NewError(code, message string, cause error) *HopperError {
	return &HopperError{Code: code, Message: message, Err: cause}
}

// Errorf builds a HopperError with a formatted message.
func Errorf(code, format string, args ...any) *HopperError {
	return &HopperError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err (or anything it wraps) is a HopperError with the given code.
func IsCode(err error, code string) bool {
	var he *HopperError
	if errors.As(err, &he) {
		return he.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost HopperError in err's chain, or "".
func CodeOf(err error) string {
	var he *HopperError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}
