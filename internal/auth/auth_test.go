package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestPassphraseFromPlain(t *testing.T) {
	p, err := NewPassphrase("4061", "")
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	if !p.Check("4061") || p.Check("4062") || p.Check("") {
		t.Fatalf("unexpected passphrase check results")
	}
}

func TestPassphraseFromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	p, err := NewPassphrase("ignored", string(hash))
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	if !p.Check("open sesame") || p.Check("ignored") {
		t.Fatalf("expected hash to win over plain")
	}

	if _, err := NewPassphrase("", "not-a-hash"); err == nil {
		t.Fatalf("expected malformed hash to be rejected")
	}
	if _, err := NewPassphrase("", ""); err == nil {
		t.Fatalf("expected missing passphrase to be rejected")
	}
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	raw, err := tokens.Issue("42", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "42" || claims.Nickname != "alice" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokensRejectForeignAndExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	raw, _ := tokens.Issue("42", "alice")

	if _, err := NewTokens("other", time.Minute).Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature rejected, got %v", err)
	}

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := tokens.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
	if _, err := tokens.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected garbage rejected")
	}
}
