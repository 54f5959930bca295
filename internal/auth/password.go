package auth

import "golang.org/x/crypto/bcrypt"

// HashAccessCode hashes an office access code with the configured cost.
func HashAccessCode(code string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareAccessCode verifies a code against its hashed value.
func CompareAccessCode(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
