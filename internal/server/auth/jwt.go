// Package auth mints and verifies RS256-signed access tokens.
//
// An Authority holds only immutable key material and is safe to share
// between goroutines. Verification checks signature and expiry; revocation
// is tracked separately by the session registry.
package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the access token claims. Subject carries the username.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"uid"`
	Roles  []string `json:"roles"`
}

// RoleSet maps the roles claim back to models.Role, skipping unknown values.
func (c *Claims) RoleSet() []models.Role {
	out := make([]models.Role, 0, len(c.Roles))
	for _, r := range c.Roles {
		if role, err := models.ParseRole(r); err == nil {
			out = append(out, role)
		}
	}
	return out
}

// Authorities returns the roles in their ROLE_-prefixed claim form.
func (c *Claims) Authorities() []string {
	roles := c.RoleSet()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Authority()
	}
	return out
}

// HasRole reports whether the token grants role.
func (c *Claims) HasRole(role models.Role) bool {
	for _, r := range c.RoleSet() {
		if r == role {
			return true
		}
	}
	return false
}

// AccessToken is a freshly minted token plus the metadata callers need
// without re-parsing it.
type AccessToken struct {
	Token     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Authority struct {
	issuer  string
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	now     func() time.Time
}

// NewAuthority builds an Authority. private may be nil for verify-only use.
func NewAuthority(issuer string, private *rsa.PrivateKey, public *rsa.PublicKey) (*Authority, error) {
	if public == nil {
		if private == nil {
			return nil, errors.New("auth: no key material")
		}
		public = &private.PublicKey
	}
	return &Authority{issuer: issuer, private: private, public: public, now: time.Now}, nil
}

// Mint signs a new access token for the user valid for ttl.
func (a *Authority) Mint(userID, username string, roles []models.Role, ttl time.Duration) (*AccessToken, error) {
	if a.private == nil {
		return nil, errors.New("auth: authority has no private key")
	}

	now := a.now()
	exp := now.Add(ttl)
	jti := uuid.NewString()

	roleClaims := make([]string, len(roles))
	for i, r := range roles {
		roleClaims[i] = string(r)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
		UserID: userID,
		Roles:  roleClaims,
	})

	signed, err := token.SignedString(a.private)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}

	return &AccessToken{Token: signed, ID: jti, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify parses token and checks signature, issuer and expiry. A token is
// expired once the current time reaches its exp claim.
//
// Errors: common.ErrInvalidSignature, common.ErrTokenExpired or
// common.ErrInvalidToken.
func (a *Authority) Verify(tokenString string) (*Claims, error) {
	claims, err := a.parse(tokenString,
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !a.now().Before(claims.ExpiresAt.Time) {
		return nil, common.ErrTokenExpired
	}
	return claims, nil
}

// VerifyIgnoringExpiry checks the signature but not the time-based claims.
// It exists so that a token can still log itself out after expiry.
func (a *Authority) VerifyIgnoringExpiry(tokenString string) (*Claims, error) {
	return a.parse(tokenString, jwt.WithoutClaimsValidation())
}

func (a *Authority) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}

	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.public, nil
	}, opts...)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	default:
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.ID == "" || claims.Issuer != a.issuer {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// GenerateKeyPair creates an RSA key suitable for RS256.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, bits)
}

// EncodeKeyPairPEM encodes the private key as PKCS#8 and the public key as
// PKIX, both PEM-armored.
func EncodeKeyPairPEM(private *rsa.PrivateKey) (privPEM, pubPEM []byte, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

// ParseKeyPairPEM decodes PEM key material. pubPEM may be empty, in which
// case the public half of the private key is used.
func ParseKeyPairPEM(privPEM, pubPEM []byte) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	private, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	if len(pubPEM) == 0 {
		return private, &private.PublicKey, nil
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	if !public.Equal(&private.PublicKey) {
		return nil, nil, errors.New("auth: public key does not match private key")
	}
	return private, public, nil
}

// LoadKeyPairFiles reads PEM files from disk. publicPath may be empty.
func LoadKeyPairFiles(privatePath, publicPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, nil, err
	}
	var pubPEM []byte
	if publicPath != "" {
		if pubPEM, err = os.ReadFile(publicPath); err != nil {
			return nil, nil, err
		}
	}
	return ParseKeyPairPEM(privPEM, pubPEM)
}
