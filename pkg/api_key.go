package pkg

import "golang.org/x/crypto/bcrypt"

const DefaultAPIKeyHashCost = 12

// HashAPIKey returns the bcrypt hash stored in place of the plain API key.
func HashAPIKey(key string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	return BytesToString(bytes), err
}

func CheckAPIKeyHash(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
