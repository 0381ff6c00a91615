// Package hash wraps bcrypt for password storage and verification.
package hash

import "golang.org/x/crypto/bcrypt"

// Hash produces a salted one-way digest of the plaintext password.
func Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the stored digest. A malformed
// digest counts as a mismatch rather than an error.
func Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
