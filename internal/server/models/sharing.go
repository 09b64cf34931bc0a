package models

import "time"

// Sharing is a directed grant from a credential owner to a target user.
type Sharing struct {
	ID           string
	OwnerID      string
	TargetID     string
	CredentialID string
	ExpiresAt    time.Time
	AccessToken  string
	Accepted     bool
	CreatedAt    time.Time
}

// Active reports whether the grant is still within its expiration date.
// An expired grant is inert regardless of Accepted.
func (s *Sharing) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Usable reports whether the target may read the shared credential.
func (s *Sharing) Usable(now time.Time) bool {
	return s.Accepted && s.Active(now)
}
