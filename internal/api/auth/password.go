package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordBytes = 72
)

// hashCost is lowered in tests.
var hashCost = bcrypt.DefaultCost

var (
	errPasswordTooShort = fmt.Errorf("must be at least %d characters", minPasswordLength)
	errPasswordTooLong  = fmt.Errorf("must be at most %d bytes", maxPasswordBytes)
)

func checkPasswordPolicy(password string) error {
	switch {
	case len([]rune(password)) < minPasswordLength:
		return errPasswordTooShort
	case len(password) > maxPasswordBytes:
		return errPasswordTooLong
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if err := checkPasswordPolicy(password); err != nil {
		return "", fmt.Errorf("password %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Malformed hashes
// never match.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
