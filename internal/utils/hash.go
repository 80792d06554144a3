package utils

import "golang.org/x/crypto/bcrypt"

// MinBcryptCost is the lowest work factor accepted for stored passwords.
const MinBcryptCost = 12

// HashPassword returns a bcrypt hash of the provided password. Costs below MinBcryptCost are raised to it.
func HashPassword(password string, cost int) (string, error) {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
