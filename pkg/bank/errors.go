package bank

import (
	"errors"
	"fmt"
)

// Kind groups error codes into the categories callers branch on.
type Kind int8

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindBusinessRule
	KindDependency
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindBusinessRule:
		return "business_rule"
	case KindDependency:
		return "dependency"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Code identifies a specific failure. Every code belongs to exactly one Kind.
type Code string

const (
	CodeInvalidAmount    Code = "InvalidAmount"
	CodeInvalidInput     Code = "InvalidInput"
	CodeInvalidScheme    Code = "InvalidScheme"
	CodeInvalidCardType  Code = "InvalidCardType"
	CodeInvalidLeverage  Code = "InvalidLeverage"
	CodeInvalidDirection Code = "InvalidDirection"
	CodeInvalidHand      Code = "InvalidHand"

	CodeNoSuchAccount   Code = "NoSuchAccount"
	CodeNotConnected    Code = "NotConnected"
	CodeUnknownPlatform Code = "UnknownPlatform"
	CodeTokenMismatch   Code = "TokenMismatch"

	CodeAlreadyRegistered Code = "AlreadyRegistered"
	CodeInsufficientFunds Code = "InsufficientFunds"
	CodePositionNotFound  Code = "PositionNotFound"
	CodeSymbolNotFound    Code = "SymbolNotFound"

	CodeQuoteUnavailable Code = "QuoteUnavailable"
	CodeStoreUnavailable Code = "StoreUnavailable"
	CodeTimeout          Code = "Timeout"

	CodeInvariantViolation Code = "InvariantViolation"
)

var codeKinds = map[Code]Kind{
	CodeInvalidAmount:    KindValidation,
	CodeInvalidInput:     KindValidation,
	CodeInvalidScheme:    KindValidation,
	CodeInvalidCardType:  KindValidation,
	CodeInvalidLeverage:  KindValidation,
	CodeInvalidDirection: KindValidation,
	CodeInvalidHand:      KindValidation,

	CodeNoSuchAccount:   KindAuthorization,
	CodeNotConnected:    KindAuthorization,
	CodeUnknownPlatform: KindAuthorization,
	CodeTokenMismatch:   KindAuthorization,

	CodeAlreadyRegistered: KindBusinessRule,
	CodeInsufficientFunds: KindBusinessRule,
	CodePositionNotFound:  KindBusinessRule,
	CodeSymbolNotFound:    KindBusinessRule,

	CodeQuoteUnavailable: KindDependency,
	CodeStoreUnavailable: KindDependency,
	CodeTimeout:          KindDependency,

	CodeInvariantViolation: KindInvariant,
}

// Kind returns the category the code belongs to.
func (c Code) Kind() Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindInvariant
}

// Error is the tagged error returned by every bank, engine and store operation.
type Error struct {
	Code Code
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind returns the category of the error.
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Errorf builds a tagged error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error. Wrapping a nil error returns nil.
func Wrap(code Code, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the code of a tagged error, or "" if err carries none.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// KindOf extracts the category of err. Untagged errors are treated as
// dependency failures: they come from the store or the network.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind()
	}
	return KindDependency
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
