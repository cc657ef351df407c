package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorMapsGRPCCodes(t *testing.T) {
	cases := []struct {
		name        string
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{name: "not found", code: codes.NotFound, notFound: true},
		{name: "already exists", code: codes.AlreadyExists, conflict: true},
		{name: "aborted", code: codes.Aborted, conflict: true},
		{name: "failed precondition", code: codes.FailedPrecondition, conflict: true},
		{name: "unavailable", code: codes.Unavailable, unavailable: true},
		{name: "resource exhausted", code: codes.ResourceExhausted, unavailable: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := WrapError("shipments.get", status.Error(tc.code, "boom"))
			var repoErr *Error
			if !errors.As(wrapped, &repoErr) {
				t.Fatalf("expected *Error, got %T", wrapped)
			}
			if repoErr.IsNotFound() != tc.notFound {
				t.Errorf("IsNotFound = %v, want %v", repoErr.IsNotFound(), tc.notFound)
			}
			if repoErr.IsConflict() != tc.conflict {
				t.Errorf("IsConflict = %v, want %v", repoErr.IsConflict(), tc.conflict)
			}
			if repoErr.IsUnavailable() != tc.unavailable {
				t.Errorf("IsUnavailable = %v, want %v", repoErr.IsUnavailable(), tc.unavailable)
			}
		})
	}
}

func TestWrapErrorPassesThroughContextErrors(t *testing.T) {
	if got := WrapError("op", context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("WrapError(context.Canceled) = %v", got)
	}
	if got := WrapError("op", status.Error(codes.Canceled, "cancelled")); !errors.Is(got, context.Canceled) {
		t.Errorf("WrapError(codes.Canceled) = %v", got)
	}
	if got := WrapError("op", status.Error(codes.DeadlineExceeded, "deadline")); !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("WrapError(codes.DeadlineExceeded) = %v", got)
	}
}

func TestWrapErrorPreservesExistingError(t *testing.T) {
	inner := WrapError("payments.create", status.Error(codes.AlreadyExists, "dup"))
	rewrapped := WrapError("payments.retry", inner)

	var repoErr *Error
	if !errors.As(rewrapped, &repoErr) {
		t.Fatalf("expected *Error, got %T", rewrapped)
	}
	if !repoErr.IsConflict() {
		t.Error("expected conflict to survive rewrapping")
	}
	if repoErr.op != "payments.create" {
		t.Errorf("op = %q, want original op retained", repoErr.op)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if got := WrapError("op", nil); got != nil {
		t.Errorf("WrapError(nil) = %v, want nil", got)
	}
}
