// Package credentials stores and verifies salted password hashes.
package credentials

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "vigil/pkg/domain-errors"
)

const minPasswordLength = 8

// Hash creates a bcrypt hash of the provided password.
func Hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a stored bcrypt hash. The bcrypt
// comparison runs in time independent of where the inputs differ.
func Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password")
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}

// dummyHash is a valid bcrypt hash of a throwaway value. VerifyDummy burns the
// same work as a real comparison so login timing does not reveal whether an
// email exists.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("vigil-timing-pad"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// VerifyDummy performs a comparison against a throwaway hash and always fails.
func VerifyDummy(password string) error {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
	return dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or password")
}
