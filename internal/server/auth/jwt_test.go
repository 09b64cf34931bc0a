package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keysOnce sync.Once
	keyA     *rsa.PrivateKey
	keyB     *rsa.PrivateKey
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		var err error
		if keyA, err = GenerateKeyPair(2048); err != nil {
			panic(err)
		}
		if keyB, err = GenerateKeyPair(2048); err != nil {
			panic(err)
		}
	})
	return keyA, keyB
}

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	a, _ := testKeys(t)
	auth, err := NewAuthority("gophvault-test", a, nil)
	require.NoError(t, err)
	return auth
}

func TestMintAndVerify_Success(t *testing.T) {
	t.Parallel()
	a := newTestAuthority(t)

	tok, err := a.Mint("user-123", "alice", []models.Role{models.RoleUser, models.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	require.NotEmpty(t, tok.ID)

	claims, err := a.Verify(tok.Token)
	require.NoError(t, err)

	assert.Equal(t, "gophvault-test", claims.Issuer)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, tok.ID, claims.ID)
	assert.Equal(t, []string{"USER", "ADMIN"}, claims.Roles)
	assert.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, claims.Authorities())
	assert.True(t, claims.HasRole(models.RoleAdmin))
	require.NotNil(t, claims.IssuedAt)
	assert.WithinDuration(t, tok.ExpiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestMint_UniqueIDs(t *testing.T) {
	t.Parallel()
	a := newTestAuthority(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		tok, err := a.Mint("u", "alice", []models.Role{models.RoleUser}, time.Minute)
		require.NoError(t, err)
		assert.False(t, seen[tok.ID])
		seen[tok.ID] = true
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	a := newTestAuthority(t)

	tok, err := a.Mint("u1", "alice", []models.Role{models.RoleUser}, -1*time.Second)
	require.NoError(t, err)

	_, err = a.Verify(tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_ExpiredAtExactExpiry(t *testing.T) {
	t.Parallel()
	a := newTestAuthority(t)

	issued := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return issued }
	tok, err := a.Mint("u1", "alice", []models.Role{models.RoleUser}, time.Minute)
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(59 * time.Second) }
	_, err = a.Verify(tok.Token)
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(time.Minute) }
	_, err = a.Verify(tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_WrongKey(t *testing.T) {
	t.Parallel()
	_, b := testKeys(t)
	a := newTestAuthority(t)
	other, err := NewAuthority("gophvault-test", b, nil)
	require.NoError(t, err)

	tok, err := a.Mint("u2", "bob", []models.Role{models.RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = other.Verify(tok.Token)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()
	a := newTestAuthority(t)

	tok, err := a.Mint("u2", "bob", []models.Role{models.RoleUser}, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"USER"`, `"ADMIN"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = a.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_RejectsHMACToken(t *testing.T) {
	t.Parallel()
	a := newTestAuthority(t)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gophvault-test",
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			ID:        "x",
		},
	})
	s, err := hs.SignedString([]byte("guessable"))
	require.NoError(t, err)

	_, err = a.Verify(s)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	a := newTestAuthority(t)

	for _, s := range []string{"", "not.a.jwt", "abc"} {
		_, err := a.Verify(s)
		assert.ErrorIs(t, err, common.ErrInvalidToken, s)
	}
}

func TestVerify_ForeignIssuer(t *testing.T) {
	t.Parallel()
	key, _ := testKeys(t)
	a := newTestAuthority(t)
	foreign, err := NewAuthority("someone-else", key, nil)
	require.NoError(t, err)

	tok, err := foreign.Mint("u", "alice", []models.Role{models.RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = a.Verify(tok.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerifyIgnoringExpiry(t *testing.T) {
	t.Parallel()
	_, b := testKeys(t)
	a := newTestAuthority(t)

	tok, err := a.Mint("u1", "alice", []models.Role{models.RoleUser}, -time.Hour)
	require.NoError(t, err)

	claims, err := a.VerifyIgnoringExpiry(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, claims.ID)

	other, _ := NewAuthority("gophvault-test", b, nil)
	_, err = other.VerifyIgnoringExpiry(tok.Token)
	assert.ErrorIs(t, err, common.ErrInvalidSignature)
}

func TestVerifyOnlyAuthority(t *testing.T) {
	t.Parallel()
	key, _ := testKeys(t)
	signer := newTestAuthority(t)
	verifier, err := NewAuthority("gophvault-test", nil, &key.PublicKey)
	require.NoError(t, err)

	_, err = verifier.Mint("u", "alice", nil, time.Hour)
	assert.Error(t, err)

	tok, err := signer.Mint("u", "alice", nil, time.Hour)
	require.NoError(t, err)
	_, err = verifier.Verify(tok.Token)
	assert.NoError(t, err)

	_, err = NewAuthority("x", nil, nil)
	assert.Error(t, err)
}

func TestKeyPairPEM_RoundTrip(t *testing.T) {
	t.Parallel()
	a, b := testKeys(t)

	privPEM, pubPEM, err := EncodeKeyPairPEM(a)
	require.NoError(t, err)
	assert.Contains(t, string(privPEM), "BEGIN PRIVATE KEY")
	assert.Contains(t, string(pubPEM), "BEGIN PUBLIC KEY")

	priv, pub, err := ParseKeyPairPEM(privPEM, pubPEM)
	require.NoError(t, err)
	assert.True(t, priv.Equal(a))
	assert.True(t, pub.Equal(&a.PublicKey))

	_, pubOnly, err := ParseKeyPairPEM(privPEM, nil)
	require.NoError(t, err)
	assert.True(t, pubOnly.Equal(&a.PublicKey))

	_, otherPub, err := EncodeKeyPairPEM(b)
	require.NoError(t, err)
	_, _, err = ParseKeyPairPEM(privPEM, otherPub)
	assert.Error(t, err)

	_, _, err = ParseKeyPairPEM([]byte("garbage"), nil)
	assert.Error(t, err)
}

func TestLoadKeyPairFiles(t *testing.T) {
	t.Parallel()
	a, _ := testKeys(t)
	dir := t.TempDir()

	privPEM, pubPEM, err := EncodeKeyPairPEM(a)
	require.NoError(t, err)
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))

	priv, pub, err := LoadKeyPairFiles(privPath, pubPath)
	require.NoError(t, err)
	assert.True(t, priv.Equal(a))
	assert.True(t, pub.Equal(&a.PublicKey))

	_, _, err = LoadKeyPairFiles(filepath.Join(dir, "missing.pem"), "")
	assert.Error(t, err)
}
