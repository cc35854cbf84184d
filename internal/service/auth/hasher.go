package auth

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
)

// Interface to create or check password hashes
type PasswordHasher interface {
	// Generate hash from password. Empty password is rejected
	Hash(password string) (string, error)

	// Check user provided password against known hash
	// Must be protected against timing attacks
	Check(hashedPassword string, password string) bool
}

var DefaultHasher PasswordHasher = BcryptHasher{Cost: bcrypt.DefaultCost}

// Bcrypt password hasher
// Password is sha256 prehashed, so passwords longer than 72 bytes are not truncated
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", apperrors.ErrPasswordEmpty
	}

	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

func (h BcryptHasher) Check(hashedPassword string, password string) bool {
	sum := sha256.Sum256([]byte(password))
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:]) == nil
}
