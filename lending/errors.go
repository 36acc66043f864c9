package lending

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies ledger failures so callers can branch without string matching.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindDuplicate           Kind = "duplicate"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindAlreadyReturned     Kind = "already_returned"
	KindInsufficientPayment Kind = "insufficient_payment"
	KindPersistence         Kind = "persistence"
)

// Error is the single error type returned by the ledger, codec and report writer.
type Error struct {
	Op   string
	Kind Kind
	Msg  string
	// Due is the fine owed; only set for KindInsufficientPayment.
	Due decimal.Decimal
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err (or anything it wraps) is a ledger error of kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// DueAmount extracts the fine carried by an insufficient payment error.
func DueAmount(err error) (decimal.Decimal, bool) {
	var le *Error
	if errors.As(err, &le) && le.Kind == KindInsufficientPayment {
		return le.Due, true
	}
	return decimal.Zero, false
}

func newError(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func persistenceError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindPersistence, Err: err}
}
