package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashToken hashes a raw API token for storage
func HashToken(token string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckTokenHash compares a raw API token with its stored bcrypt hash
func CheckTokenHash(token, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
	return err == nil
}
