package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a failure so callers can tell retryable from terminal
// outcomes without string matching.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid-argument"
	KindPermissionDenied   Kind = "permission-denied"
	KindFailedPrecondition Kind = "failed-precondition"
	KindNotFound           Kind = "not-found"
	KindConflict           Kind = "conflict"
	KindInternal           Kind = "internal"
)

// Error is a Kind-tagged failure. Validation failures are always raised
// before any write; KindConflict means the store detected concurrent
// modification and the request is safe to resend unchanged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return string(e.Kind) + ": " + e.Msg
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

var (
	ErrNotDistributor    = errf(KindPermissionDenied, "caller is not a distributor")
	ErrInsufficientFunds = errf(KindFailedPrecondition, "insufficient funds")
	ErrMissingOrderID    = errf(KindInvalidArgument, "no order id in callback payload")
	ErrOrderNotFound     = errf(KindNotFound, "order not found")
	ErrAccountNotFound   = errf(KindNotFound, "account not found")
)

// KindOf extracts the Kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Retryable reports whether the caller may safely resend the same request.
func Retryable(err error) bool {
	return KindOf(err) == KindConflict
}

// isSerializationFailure matches serialization_failure and deadlock_detected.
// Transactions failing this way are retried with freshly re-read balances.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}
