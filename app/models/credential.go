package models

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyCredential = errors.New("credential must not be empty")

// Credential is a secret handed to the model together with its form.
// Raw secrets are hashed before storage, hashed ones are stored as given.
type Credential struct {
	Value string
	Raw   bool
}

// RawCredential wraps a plaintext secret, e.g. from an admin form.
func RawCredential(secret string) Credential {
	return Credential{Value: secret, Raw: true}
}

// HashedCredential wraps a secret that already is a bcrypt hash.
func HashedCredential(hash string) Credential {
	return Credential{Value: hash, Raw: false}
}

// Stored returns the value that goes into the database column.
func (c Credential) Stored() (string, error) {
	if c.Value == "" {
		return "", ErrEmptyCredential
	}
	if !c.Raw {
		return c.Value, nil
	}
	return HashPassword(c.Value)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}
