package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	err := New(Forbidden, "modification not permitted")
	if got := KindOf(err); got != Forbidden {
		t.Fatalf("KindOf: got %v want Forbidden", got)
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if got := KindOf(wrapped); got != Forbidden {
		t.Fatalf("KindOf through wrapping: got %v want Forbidden", got)
	}

	if got := KindOf(errors.New("plain")); got != Internal {
		t.Fatalf("KindOf plain error: got %v want Internal", got)
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	if got := Message(New(NotFound, "account not found")); got != "account not found" {
		t.Fatalf("Message: got %q", got)
	}
	if got := Message(errors.New("boom")); got != "internal error" {
		t.Fatalf("Message plain: got %q", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := Wrap(Internal, "account create failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must be reachable via errors.Is")
	}
	if err.Error() != "account create failed: disk full" {
		t.Fatalf("Error(): got %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		BadRequest:   http.StatusBadRequest,
		Forbidden:    http.StatusForbidden,
		NotFound:     http.StatusNotFound,
		InvalidValue: http.StatusUnprocessableEntity,
		Internal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Fatalf("HTTPStatus(%v): got %d want %d", kind, got, want)
		}
	}
}
