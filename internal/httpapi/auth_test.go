package httpapi

import (
	"testing"
	"time"

	"clubpuntos/backend/internal/domain"
	"clubpuntos/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) *AuthManager {
	t.Helper()
	return NewAuthManager("test-secret-0123456789-0123456789-01", time.Hour, memory.NewSeeded())
}

func TestLoginAndParseToken(t *testing.T) {
	auth := newTestAuth(t)

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "admin" || resp.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := newTestAuth(t)

	if _, err := auth.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to fail")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	auth := newTestAuth(t)
	other := NewAuthManager("another-secret-9876543210-987654321", time.Hour, memory.NewSeeded())

	resp, err := other.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}
}

func TestCreateUserValidation(t *testing.T) {
	auth := newTestAuth(t)

	cases := []domain.UserCreateRequest{
		{Username: "ab", Password: "secret1"},
		{Username: "valido", Password: "123"},
		{Username: "valido", Password: "secret1", Role: "superuser"},
		{Username: "admin", Password: "secret1"},
	}
	for _, req := range cases {
		if _, err := auth.CreateUser(req); err == nil {
			t.Fatalf("expected validation failure for %+v", req)
		}
	}

	user, err := auth.CreateUser(domain.UserCreateRequest{Username: "nueva", Password: "secret1", Role: "cashier"})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if user.Role != "cashier" || !user.Active {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := auth.Login(domain.LoginRequest{Username: "nueva", Password: "secret1"}); err != nil {
		t.Fatalf("login as created user failed: %v", err)
	}
}

func TestCreatedUsersSurviveRestart(t *testing.T) {
	repo := memory.NewSeeded()
	first := NewAuthManager("test-secret-0123456789-0123456789-01", time.Hour, repo)

	if _, err := first.CreateUser(domain.UserCreateRequest{Username: "persistida", Password: "secret1"}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	// A fresh manager over the same store bootstraps the account.
	second := NewAuthManager("test-secret-0123456789-0123456789-01", time.Hour, repo)
	if _, err := second.Login(domain.LoginRequest{Username: "persistida", Password: "secret1"}); err != nil {
		t.Fatalf("login after restart failed: %v", err)
	}
}
