// Package auth verifies the shared passphrase and issues login tokens.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Passphrase checks login attempts against a bcrypt hash of the shared passphrase.
type Passphrase struct {
	hash []byte
}

// NewPassphrase prefers an explicit bcrypt hash; otherwise it hashes plain once.
func NewPassphrase(plain, hash string) (*Passphrase, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, err
		}
		return &Passphrase{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return nil, errors.New("passphrase is not configured")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Passphrase{hash: h}, nil
}

func (p *Passphrase) Check(passphrase string) bool {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(passphrase)) == nil
}
