package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	token, expires, err := ti.Issue(&model.User{ID: 7, Role: model.RoleSectorLeader})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expires = %v, want future", expires)
	}

	ac, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ac.UserID != 7 {
		t.Errorf("UserID = %d, want 7", ac.UserID)
	}
	if ac.Role != model.RoleSectorLeader {
		t.Errorf("Role = %q, want %q", ac.Role, model.RoleSectorLeader)
	}
	if ac.TokenID == "" {
		t.Error("expected token id")
	}
}

func TestTokenExpired(t *testing.T) {
	ti, _ := NewTokenIssuer("secret", time.Minute)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := ti.Issue(&model.User{ID: 1, Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ti.now = time.Now
	if _, err := ti.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("parse err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-a", 0)
	b, _ := NewTokenIssuer("secret-b", 0)

	token, _, err := a.Issue(&model.User{ID: 1, Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("parse err = %v, want ErrInvalidToken", err)
	}
	if _, err := a.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("parse garbage err = %v, want ErrInvalidToken", err)
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestPassword(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
}
