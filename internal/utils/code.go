package utils

import (
	"crypto/rand" // Cryptographic random source
)

// Characters allowed in referral codes: uppercase alphanumeric
const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferralCodeLength is the fixed length of generated referral codes
const ReferralCodeLength = 6

// GenerateReferralCode returns a random 6-char uppercase alphanumeric code.
// Uniqueness is enforced by the database index; callers retry on collision.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, ReferralCodeLength) // Buffer for random bytes
	if _, err := rand.Read(buf); err != nil {
		return "", err // Return error if the random source fails
	}
	// Map each random byte onto the charset
	for i := range buf {
		buf[i] = codeCharset[int(buf[i])%len(codeCharset)]
	}
	return string(buf), nil // Return the generated code
}
