package auth

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var mpinPattern = regexp.MustCompile(`^[0-9]{5}$`)

// ValidMPIN reports whether the given string is a well-formed 5-digit MPIN.
func ValidMPIN(mpin string) bool {
	return mpinPattern.MatchString(mpin)
}

// HashMPIN generates a bcrypt hash of the MPIN.
func HashMPIN(mpin string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(mpin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash MPIN: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckMPINHash compares a plaintext MPIN with a stored bcrypt hash.
func CheckMPINHash(mpin, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(mpin))
	return err == nil
}
