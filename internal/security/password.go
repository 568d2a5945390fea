package security

import "golang.org/x/crypto/bcrypt"

// bcryptCost defines the bcrypt work factor.
const bcryptCost = 12

// dummyHash is compared against when no account matches, so the
// unknown-email path costs one bcrypt comparison like the mismatch path.
var dummyHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("toolshelf-no-such-account"), bcryptCost)
	if err != nil {
		panic(err)
	}
	return hash
}()

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck runs a throwaway bcrypt comparison. Called on lookup
// misses to keep credential failures uniform in cost.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
