package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

const MinPasswordLength = 6

var (
	ErrWeakPassword     = errors.New("password must be at least 6 characters and contain a lowercase letter, an uppercase letter and a digit")
	ErrPasswordMismatch = errors.New("password does not match")
)

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword returns ErrPasswordMismatch when plain does not match hash.
func ComparePassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}

func CheckPasswordStrength(plain string) error {
	if len(plain) < MinPasswordLength {
		return ErrWeakPassword
	}
	var lower, upper, digit bool
	for _, r := range plain {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return ErrWeakPassword
	}
	return nil
}
