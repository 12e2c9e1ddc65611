package utils

import "golang.org/x/crypto/bcrypt"

// HashAPIKey hashes a merchant API key for storage.
func HashAPIKey(apiKey string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
}

// CheckAPIKey compares a presented API key against the stored hash.
func CheckAPIKey(apiKey, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) == nil
}
