package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a plaintext password against a stored hash.
// Abstracted so services can be tested without paying bcrypt cost.
type PasswordVerifier interface {
	// Compare returns nil when password matches hashedPassword, or an
	// error on mismatch or a malformed hash.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier is the production PasswordVerifier. Hashing itself lives
// in the user store, which owns the bcrypt cost setting.
type BcryptVerifier struct{}

// NewBcryptVerifier returns a bcrypt-backed verifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
