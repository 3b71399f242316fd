package errors

import (
	stderrs "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "synthetic"}
}

func TestDBErrorCodeMapping(t *testing.T) {
	cases := map[string]ErrorCode{
		pgErrUniqueViolation:      ErrorCodeDuplicateKey,
		pgErrForeignKeyViolation:  ErrorCodeInvalidArgument,
		pgErrNotNullViolation:     ErrorCodeValidation,
		pgErrCannotConnectNow:     ErrorCodeUnavailable,
		pgErrDeadlockDetected:     ErrorCodeDB,
		"58000":                   ErrorCodeDB, // system io error falls through to the default
	}
	for state, want := range cases {
		got, ok := DBErrorCode(pgErr(state))
		if !ok || got != want {
			t.Fatalf("DBErrorCode(%s) = (%v,%v), want (%v,true)", state, got, ok, want)
		}
	}

	if _, ok := DBErrorCode(stderrs.New("not pg")); ok {
		t.Fatalf("non-pg errors must report !ok")
	}
}

func TestIsDuplicateKeyThroughWrapping(t *testing.T) {
	err := FromPostgres(pgErr(pgErrUniqueViolation), "approve user")
	if !IsDuplicateKey(err) {
		t.Fatalf("duplicate key should survive wrapping")
	}
	if !IsCode(err, ErrorCodeDuplicateKey) {
		t.Fatalf("wrapped code should be DuplicateKey")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(pgErr(pgErrSerializationFailure)) {
		t.Fatalf("serialization failure is retryable")
	}
	if IsRetryable(pgErr(pgErrUniqueViolation)) {
		t.Fatalf("unique violation is not retryable")
	}
	if !IsRetryable(stderrs.New("commit unexpectedly resulted in rollback")) {
		t.Fatalf("commit rollback text is retryable")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}
