package token

import (
	"strings"
	"testing"
	"time"

	"github.com/existflow/projectmate/internal/apperr"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	iss, err := NewIssuer("0123456789abcdef-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	iss.SetClock(func() time.Time { return now })

	raw, expiresAt, err := iss.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires at %v", expiresAt)
	}

	userID, err := iss.Verify(raw)
	if err != nil || userID != "user-1" {
		t.Fatalf("verify = %q, %v", userID, err)
	}

	other, _ := NewIssuer("another-secret-of-16", time.Hour)
	other.SetClock(func() time.Time { return now })

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
		at     time.Time
	}{
		{name: "empty", issuer: iss, token: " ", at: now},
		{name: "garbage", issuer: iss, token: "not.a.token", at: now},
		{name: "tampered", issuer: iss, token: raw[:len(raw)-2] + "xx", at: now},
		{name: "other secret", issuer: other, token: raw, at: now},
		{name: "expired", issuer: iss, token: raw, at: now.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			tt.issuer.SetClock(func() time.Time { return at })
			_, err := tt.issuer.Verify(tt.token)
			if apperr.KindOf(err) != apperr.KindUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestNewIssuerRejectsShortSecret(t *testing.T) {
	if _, err := NewIssuer(strings.Repeat("x", 8), 0); err == nil {
		t.Fatal("expected error for short secret")
	}
	iss, err := NewIssuer(strings.Repeat("x", 16), 0)
	if err != nil || iss.ttl != DefaultTTL {
		t.Fatalf("default ttl = %v, %v", iss, err)
	}
}
