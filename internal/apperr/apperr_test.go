package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("send: %w", Conflict(CodeInvitationPending, "a pending invitation already exists"))

	tests := []struct {
		name   string
		target error
		want   bool
	}{
		{name: "kind sentinel", target: ErrConflict, want: true},
		{name: "same kind and code", target: &Error{Kind: KindConflict, Code: CodeInvitationPending}, want: true},
		{name: "same kind other code", target: &Error{Kind: KindConflict, Code: CodeAlreadyMember}, want: false},
		{name: "other kind", target: ErrNotFound, want: false},
		{name: "plain error", target: errors.New("conflict"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Fatalf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindCodeMessageOf(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name    string
		err     error
		kind    Kind
		code    Code
		message string
	}{
		{name: "not found", err: NotFound(CodeTaskNotFound, "task not found"), kind: KindNotFound, code: CodeTaskNotFound, message: "task not found"},
		{name: "validation", err: Validationf("title must be %d chars", 2), kind: KindValidation, code: CodeValidation, message: "title must be 2 chars"},
		{name: "wrapped forbidden", err: fmt.Errorf("x: %w", Forbidden("nope")), kind: KindForbidden, code: CodeForbidden, message: "nope"},
		{name: "internal", err: fmt.Errorf("write: %w", cause), kind: KindInternal, code: CodeInternal, message: "internal error"},
		{name: "wrapped internal kind", err: Wrap(KindInternal, CodeInternal, "store failed", cause), kind: KindInternal, code: CodeInternal, message: "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Fatalf("KindOf = %s, want %s", got, tt.kind)
			}
			if got := CodeOf(tt.err); got != tt.code {
				t.Fatalf("CodeOf = %s, want %s", got, tt.code)
			}
			if got := MessageOf(tt.err); got != tt.message {
				t.Fatalf("MessageOf = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("token expired")
	err := Wrap(KindUnauthorized, CodeUnauthorized, "invalid token", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through errors.Is")
	}
	if err.Error() != "invalid token: token expired" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if KindExpired.String() != "EXPIRED" || Kind(99).String() != "INTERNAL" {
		t.Fatal("unexpected kind labels")
	}
}
