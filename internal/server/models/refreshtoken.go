package models

import "time"

// RefreshToken is a single-use opaque token owned by UserID.
type RefreshToken struct {
	Token     string
	UserID    string
	Expires   time.Time
	CreatedAt time.Time
}

// RevokedToken marks an access token (by jti) invalid until its natural expiry.
type RevokedToken struct {
	TokenID string
	Expires time.Time
}
