package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 households and transitions")

	sealed, err := Seal(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed output contains plaintext")
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("open = %q, want %q", got, plaintext)
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, err := Seal([]byte("x"), "pass")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := Seal([]byte("x"), "pass")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("expected different salts")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(sealed, "wrong"); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, err := Seal([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := Open(sealed, "pass"); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestOpenTooShort(t *testing.T) {
	if _, err := Open(make([]byte, 10), "pass"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("err = %v, want ErrCiphertextTooShort", err)
	}
}

func TestSealRequiresPassphrase(t *testing.T) {
	if _, err := Seal([]byte("x"), ""); err == nil {
		t.Fatal("expected error for empty passphrase")
	}
}
