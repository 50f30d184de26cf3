package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"sentinel", ErrInsufficientFunds, KindFailedPrecondition},
		{"wrapped sentinel", fmt.Errorf("transfer: %w", ErrNotDistributor), KindPermissionDenied},
		{"tagged", errf(KindConflict, "busy"), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil-ish unknown", fmt.Errorf("db: %w", errors.New("boom")), KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(ErrInsufficientFunds) {
		t.Fatal("insufficient funds must not be retryable")
	}
	if !Retryable(wrap(KindConflict, "retries exhausted", nil)) {
		t.Fatal("conflict must be retryable")
	}
}

func TestErrorMessage(t *testing.T) {
	err := errf(KindInvalidArgument, "amount must be a positive number")
	want := "invalid-argument: amount must be a positive number"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSerializationFailureDetection(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"40001", true},
		{"40P01", true},
		{"23505", false},
		{"42601", false},
	}

	for _, tc := range tests {
		err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: tc.code})
		if got := isSerializationFailure(err); got != tc.want {
			t.Errorf("isSerializationFailure(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}

	if isSerializationFailure(errors.New("not a pg error")) {
		t.Fatal("plain errors are not serialization failures")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatal("23505 is a unique violation")
	}
}
