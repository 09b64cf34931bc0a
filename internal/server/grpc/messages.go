package grpc

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LogoutRequest carries the refresh token to drop. The access token travels
// in metadata like for every other authenticated call.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type SetPinRequest struct {
	Pin string `json:"pin"`
}

type RevealRequest struct {
	CredentialID string `json:"credentialId"`
	Pin          string `json:"pin"`
}

type RevealResponse struct {
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
