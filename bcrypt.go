package authkit

import (
	"errors"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", goerrors.New("password must not be empty", goerrors.CategoryValidation)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

var dummyHash = sync.OnceValue(RandomPasswordHash)

// CompareDummyHash burns a full bcrypt comparison against a throwaway hash.
// Called on the "identity absent" and "no password set" paths so their
// latency stays indistinguishable from a real mismatch. The result is
// always a credential rejection.
func CompareDummyHash(password string) error {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(password))
	return ErrInvalidCredentials
}
