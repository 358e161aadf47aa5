package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the admin login pair. The password survives only as a
// bcrypt hash; generation of missing values happens at config load.
type Credentials struct {
	Username string
	hash     []byte
}

// NewCredentials hashes the configured admin pair.
func NewCredentials(username, password string) (*Credentials, error) {
	if username == "" {
		username = "admin"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Credentials{Username: username, hash: hash}, nil
}

// Check verifies one login attempt.
func (c *Credentials) Check(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}
