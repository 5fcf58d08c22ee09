package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
	"letsquiz-service/internal/infra/memory"
)

func newAuthService(users *memory.UserRepository) *app.AuthService {
	return app.NewAuthService(users, "test-secret", time.Hour, 24*time.Hour)
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	auth := newAuthService(users)

	user, err := auth.Signup(ctx, "  Alice@Example.COM ", "pass1234")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if !user.IsActive {
		t.Fatalf("expected new account to be active")
	}

	pair, err := auth.Login(ctx, "alice@example.com", "pass1234")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" || pair.UserID != user.ID {
		t.Fatalf("unexpected token pair: %+v", pair)
	}

	caller, err := auth.Authenticate(ctx, pair.Access)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if !caller.Authenticated || caller.UserID != user.ID {
		t.Fatalf("unexpected caller: %+v", caller)
	}
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	auth := newAuthService(memory.NewUserRepository())

	if _, err := auth.Signup(ctx, "not-an-email", "pass1234"); !errors.Is(err, domain.NewValidationError("")) {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}
	if _, err := auth.Signup(ctx, "a@b.com", "abc"); !errors.Is(err, domain.NewValidationError("")) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}

	if _, err := auth.Signup(ctx, "a@b.com", "pass1234"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := auth.Signup(ctx, "a@b.com", "pass1234"); !errors.Is(err, domain.NewValidationError("")) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	auth := newAuthService(users)

	if _, err := auth.Signup(ctx, "a@b.com", "pass1234"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	// Unknown email and wrong password must be indistinguishable.
	_, unknownErr := auth.Login(ctx, "nobody@b.com", "pass1234")
	_, wrongErr := auth.Login(ctx, "a@b.com", "wrongpass")
	if !errors.Is(unknownErr, domain.ErrAuthenticationFailed) || !errors.Is(wrongErr, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected authentication_failed for both, got %v and %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("expected identical messages, got %q and %q", unknownErr.Error(), wrongErr.Error())
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	auth := newAuthService(users)

	hash, err := bcrypt.GenerateFromPassword([]byte("pass1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	disabled := domain.User{Email: "a@b.com", PasswordHash: string(hash), IsActive: false}
	if err := users.CreateUser(ctx, &disabled); err != nil {
		t.Fatalf("store disabled user: %v", err)
	}

	_, err = auth.Login(ctx, "a@b.com", "pass1234")
	if !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected authentication_failed, got %v", err)
	}
	if err.Error() != "User account is disabled." {
		t.Fatalf("expected disabled message, got %q", err.Error())
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	auth := newAuthService(users)

	if _, err := auth.Signup(ctx, "a@b.com", "pass1234"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	pair, err := auth.Login(ctx, "a@b.com", "pass1234")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := auth.Authenticate(ctx, pair.Refresh); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected refresh token rejection, got %v", err)
	}
	if _, err := auth.Authenticate(ctx, "garbage.token.here"); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected garbage token rejection, got %v", err)
	}
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	auth := newAuthService(users)

	if _, err := auth.Signup(ctx, "a@b.com", "pass1234"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	pair, err := auth.Login(ctx, "a@b.com", "pass1234")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	other := app.NewAuthService(users, "different-secret", time.Hour, 24*time.Hour)
	if _, err := other.Authenticate(ctx, pair.Access); !errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected signature mismatch rejection, got %v", err)
	}
}
