package errors

import (
	stderrs "errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrs.New("boom")
	err := Wrap(cause, ErrorCodeDB, "trust upsert failed")

	if !stderrs.Is(err, cause) {
		t.Fatalf("expected errors.Is to see the cause")
	}
	if Root(err) != cause {
		t.Fatalf("Root should return the deepest cause")
	}
	if CodeOf(err) != ErrorCodeDB {
		t.Fatalf("CodeOf = %v, want DB", CodeOf(err))
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if CodeOf(stderrs.New("plain")) != ErrorCodeUnknown {
		t.Fatalf("foreign errors default to Unknown")
	}
	if CodeOf(nil) != ErrorCodeUnknown {
		t.Fatalf("nil defaults to Unknown")
	}
}

func TestWithOpCopyOnWrite(t *testing.T) {
	base := New(ErrorCodeConflict, "challenge already pending")
	tagged := WithOp(base, "challenge.Issue")

	be, _ := As(base)
	te, _ := As(tagged)
	if be.Op() != "" {
		t.Fatalf("original must not be mutated")
	}
	if te.Op() != "challenge.Issue" {
		t.Fatalf("op not attached: %q", te.Op())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeNotFound:    http.StatusNotFound,
		ErrorCodeConflict:    http.StatusConflict,
		ErrorCodeValidation:  http.StatusBadRequest,
		ErrorCodeTimeout:     http.StatusGatewayTimeout,
		ErrorCodeUnavailable: http.StatusServiceUnavailable,
		ErrorCodeUnknown:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatusCode(code); got != want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", code, got, want)
		}
	}
}

func TestWrapIf(t *testing.T) {
	if WrapIf(nil, ErrorCodeDB, "x") != nil {
		t.Fatalf("WrapIf(nil) must be nil")
	}
	err := WrapIf(stderrs.New("b"), ErrorCodeTimeout, "classifier call")
	if !IsCode(err, ErrorCodeTimeout) {
		t.Fatalf("expected timeout code")
	}
}
