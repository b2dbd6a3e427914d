package statements

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/shared"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

// ErrorKind is the machine-checkable failure category of a generation call.
type ErrorKind string

const (
	KindNotFound               ErrorKind = "not_found"
	KindUnbalancedTrialBalance ErrorKind = "unbalanced_trial_balance"
	KindBalanceSheetImbalance  ErrorKind = "balance_sheet_imbalance"
	KindUnsupportedMethod      ErrorKind = "unsupported_method"
	KindOrphanedAccount        ErrorKind = "orphaned_account"
	KindInvalidRequest         ErrorKind = "invalid_request"
	KindComputation            ErrorKind = "computation"
)

var (
	// ErrNotFound indicates a missing trial balance, document or prerequisite statement.
	ErrNotFound = errors.New("statements: not found")
	// ErrUnbalancedTrialBalance indicates the closing balances do not sum to zero.
	ErrUnbalancedTrialBalance = errors.New("statements: unbalanced trial balance")
	// ErrBalanceSheetImbalance indicates assets differ from liabilities plus equity.
	ErrBalanceSheetImbalance = errors.New("statements: balance sheet not balanced")
	// ErrUnsupportedMethod indicates a derivation method that is not implemented.
	ErrUnsupportedMethod = errors.New("statements: unsupported method")
	// ErrOrphanedAccount indicates analytic accounts whose lineage cannot be resolved.
	ErrOrphanedAccount = errors.New("statements: orphaned account")
	// ErrInvalidRequest indicates a malformed generation request.
	ErrInvalidRequest = errors.New("statements: invalid request")
	// ErrComputation indicates an unexpected fault while generating.
	ErrComputation = errors.New("statements: computation failed")
)

var kindSentinel = map[ErrorKind]error{
	KindNotFound:               ErrNotFound,
	KindUnbalancedTrialBalance: ErrUnbalancedTrialBalance,
	KindBalanceSheetImbalance:  ErrBalanceSheetImbalance,
	KindUnsupportedMethod:      ErrUnsupportedMethod,
	KindOrphanedAccount:        ErrOrphanedAccount,
	KindInvalidRequest:         ErrInvalidRequest,
	KindComputation:            ErrComputation,
}

// Error is a structured generation failure. errors.Is matches it against the
// sentinel of its kind and against its cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Delta   decimal.NullDecimal
	Orphans []rollup.Orphan
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if sentinel, ok := kindSentinel[e.Kind]; ok {
		out = append(out, sentinel)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func imbalanceError(kind ErrorKind, delta decimal.Decimal, format string, args ...any) *Error {
	err := newError(kind, format, args...)
	err.Delta = decimal.NewNullDecimal(delta)
	return err
}

// KindOf returns the kind of err. Unknown errors are computation failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	for kind, sentinel := range kindSentinel {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindComputation
}

// classifyError converts collaborator failures into structured errors.
func classifyError(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, shared.ErrNotFound),
		errors.Is(err, ledger.ErrPeriodNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		return &Error{Kind: KindNotFound, Message: "resource not found", Err: err}
	case errors.Is(err, shared.ErrInvalidPeriod):
		return &Error{Kind: KindInvalidRequest, Message: "invalid period", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindComputation, Message: "generation interrupted", Err: err}
	}
	for kind, sentinel := range kindSentinel {
		if errors.Is(err, sentinel) {
			return &Error{Kind: kind, Message: err.Error(), Err: err}
		}
	}
	return &Error{Kind: KindComputation, Message: "statement generation failed", Err: err}
}
