package security

import "golang.org/x/crypto/bcrypt"

// adminPasswordCost is the bcrypt work factor for admin credentials.
// Raising it only affects hashes stored after the change; existing
// admin rows keep their old cost until the password is reset.
const adminPasswordCost = 12

// HashPassword returns the bcrypt hash of an admin password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), adminPasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
