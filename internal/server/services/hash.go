package services

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// maxSecretLen is the longest input bcrypt will hash.
const maxSecretLen = 72

// dummyHash is compared against when a login names an unknown user, so both
// failure paths pay for one bcrypt comparison at bcryptCost.
var dummyHash = sync.OnceValue(func() string {
	h, err := hashSecret("gophvault-timing-equalizer")
	if err != nil {
		panic(err)
	}
	return h
})

func hashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// checkSecret reports whether secret matches hash. Any error other than a
// plain mismatch is returned as is.
func checkSecret(hash, secret string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
