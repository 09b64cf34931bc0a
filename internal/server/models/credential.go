package models

import "time"

// Credential is a secret owned by exactly one user. Only the ciphertext of
// the secret is ever stored.
type Credential struct {
	ID         string
	UserID     string
	Name       string
	Ciphertext string
	ServiceURL string
	Notes      string
	CategoryID *string

	// Generation metadata recorded when the credential was created.
	Length     int
	UseLower   bool
	UseUpper   bool
	UseDigits  bool
	UseSymbols bool
	Strength   int

	CreatedAt time.Time
	UpdatedAt time.Time
}
