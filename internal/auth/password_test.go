package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("umudugudu-2024")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "umudugudu-2024" {
		t.Fatal("hash equals the plaintext")
	}
	if !CheckPassword(hash, "umudugudu-2024") {
		t.Error("expected matching password to check")
	}
	if CheckPassword(hash, "umudugudu-2025") {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}
}
