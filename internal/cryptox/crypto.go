// Package cryptox implements the symmetric cipher used for credential
// secrets at rest.
//
// Two modes share the same process-wide key:
//
//   - deterministic: AES in ECB mode with PKCS#7 padding. Equal plaintexts
//     produce equal ciphertexts under one key. This matches the ciphertexts
//     already stored by existing deployments.
//   - sealed: AES-GCM with a random 12-byte nonce prepended to the output.
//
// Both modes emit standard Base64. Ciphertext carries no mode or key version
// tag, so rotating the key or switching modes makes stored values unreadable.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// KeySize is the AES-128 key length every configured key is normalized to.
const KeySize = 16

const (
	ModeDeterministic = "deterministic"
	ModeSealed        = "sealed"
)

// Cipher encrypts and decrypts credential secrets. Implementations are
// stateless after construction and safe for concurrent use.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// NormalizeKey returns a KeySize copy of raw: short keys are right-padded
// with zero bytes, long keys are truncated. This is a fixed compatibility
// policy; it adds no key stretching.
func NormalizeKey(raw []byte) []byte {
	key := make([]byte, KeySize)
	copy(key, raw)
	return key
}

// New builds the cipher for mode using the normalized form of rawKey.
func New(mode string, rawKey []byte) (Cipher, error) {
	switch mode {
	case "", ModeDeterministic:
		return NewDeterministicCipher(rawKey)
	case ModeSealed:
		return NewSealedCipher(rawKey)
	default:
		return nil, fmt.Errorf("unknown cipher mode %q", mode)
	}
}

// DeterministicCipher is AES-ECB with PKCS#7 padding.
type DeterministicCipher struct {
	block cipher.Block
}

func NewDeterministicCipher(rawKey []byte) (*DeterministicCipher, error) {
	key := NormalizeKey(rawKey)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &DeterministicCipher{block: block}, nil
}

func (c *DeterministicCipher) Encrypt(plaintext string) (string, error) {
	bs := c.block.BlockSize()
	data := pkcs7Pad([]byte(plaintext), bs)

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		c.block.Encrypt(out[i:i+bs], data[i:i+bs])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *DeterministicCipher) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", common.ErrCrypto
	}

	bs := c.block.BlockSize()
	if len(data) == 0 || len(data)%bs != 0 {
		return "", common.ErrCrypto
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		c.block.Decrypt(out[i:i+bs], data[i:i+bs])
	}

	plain, ok := pkcs7Unpad(out, bs)
	if !ok {
		return "", common.ErrCrypto
	}
	return string(plain), nil
}

// SealedCipher is AES-GCM with the nonce stored in front of the sealed data.
type SealedCipher struct {
	aead cipher.AEAD
}

func NewSealedCipher(rawKey []byte) (*SealedCipher, error) {
	key := NormalizeKey(rawKey)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SealedCipher{aead: aead}, nil
}

func (c *SealedCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", common.ErrCrypto
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SealedCipher) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", common.ErrCrypto
	}
	n := c.aead.NonceSize()
	if len(data) < n+c.aead.Overhead() {
		return "", common.ErrCrypto
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", common.ErrCrypto
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, bs int) []byte {
	n := bs - len(b)%bs
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, bs int) ([]byte, bool) {
	n := int(b[len(b)-1])
	if n == 0 || n > bs || n > len(b) {
		return nil, false
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
