package account

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store/sqlstore"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "account.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	n := 0
	return NewService(st,
		WithHashCost(bcrypt.MinCost),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("user-%d", n) }))
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if got := apperr.KindOf(err); err == nil || got != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "Secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID != "user-1" || u.Name != "Ada" || u.Email != "ada@example.com" || !u.Active {
		t.Fatalf("user = %+v", u)
	}
	if u.PasswordHash == "Secret1" {
		t.Fatal("password stored in clear")
	}

	_, err = svc.Register(ctx, RegisterInput{Name: "Ada Two", Email: "ADA@example.com", Password: "Secret1"})
	assertKind(t, err, apperr.KindConflict)

	got, err := svc.Login(ctx, " ada@EXAMPLE.com", "Secret1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("login = %+v, %v", got, err)
	}
	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assertKind(t, err, apperr.KindUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "Secret1")
	assertKind(t, err, apperr.KindUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "short name", in: RegisterInput{Name: "A", Email: "a@example.com", Password: "Secret1"}},
		{name: "bad email", in: RegisterInput{Name: "Ada", Email: "ada", Password: "Secret1"}},
		{name: "short password", in: RegisterInput{Name: "Ada", Email: "a@example.com", Password: "Se1"}},
		{name: "no digit", in: RegisterInput{Name: "Ada", Email: "a@example.com", Password: "Secrets"}},
		{name: "no upper", in: RegisterInput{Name: "Ada", Email: "a@example.com", Password: "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assertKind(t, err, apperr.KindValidation)
		})
	}
}

func TestProfileAndPassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	ada, _ := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Secret1"})
	if _, err := svc.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "Secret1"}); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	_, err := svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Email: model.Some("BOB@example.com")})
	assertKind(t, err, apperr.KindConflict)

	updated, err := svc.UpdateProfile(ctx, ada.ID, ProfilePatch{Name: model.Some("Ada L"), Avatar: model.Some("https://img/ada.png")})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Ada L" || updated.Email != "ada@example.com" || updated.Avatar == "" {
		t.Fatalf("updated = %+v", updated)
	}

	assertKind(t, svc.ChangePassword(ctx, ada.ID, "wrong", "Newpass2"), apperr.KindValidation)
	assertKind(t, svc.ChangePassword(ctx, ada.ID, "Secret1", "weak"), apperr.KindValidation)
	if err := svc.ChangePassword(ctx, ada.ID, "Secret1", "Newpass2"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "Newpass2"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	ada, _ := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Secret1"})

	if err := svc.Deactivate(ctx, ada.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := svc.Login(ctx, "ada@example.com", "Secret1")
	assertKind(t, err, apperr.KindUnauthorized)
	if apperr.CodeOf(err) != apperr.CodeAccountInactive {
		t.Fatalf("code = %s", apperr.CodeOf(err))
	}
	_, err = svc.Active(ctx, ada.ID)
	assertKind(t, err, apperr.KindUnauthorized)
}
