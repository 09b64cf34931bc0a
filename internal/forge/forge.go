// Package forge generates random passwords from selectable character classes
// and scores password strength.
package forge

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

const (
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits    = "0123456789"
	Symbols   = "!@#$%^&*()-_=+[]{}|;:,.<>?"

	// MinLength is the shortest password Generate accepts.
	MinLength = 4
	// MaxLength caps a single generation request.
	MaxLength = 128
)

// randReader is a test seam for crypto/rand.
var randReader io.Reader = rand.Reader

// Options selects the length and character classes of a generated password.
type Options struct {
	Length     int
	UseLower   bool
	UseUpper   bool
	UseDigits  bool
	UseSymbols bool
}

// DefaultOptions mirrors the HTTP defaults: 12 characters, every class on.
func DefaultOptions() Options {
	return Options{Length: 12, UseLower: true, UseUpper: true, UseDigits: true, UseSymbols: true}
}

func (o Options) classes() []string {
	var cs []string
	if o.UseLower {
		cs = append(cs, Lowercase)
	}
	if o.UseUpper {
		cs = append(cs, Uppercase)
	}
	if o.UseDigits {
		cs = append(cs, Digits)
	}
	if o.UseSymbols {
		cs = append(cs, Symbols)
	}
	return cs
}

// Generate returns a password of exactly o.Length characters holding at least
// one character of every enabled class. One character is drawn per class, the
// rest uniformly from the union of enabled classes, and the result is shuffled.
func Generate(o Options) (string, error) {
	classes := o.classes()

	switch {
	case o.Length < MinLength:
		return "", fmt.Errorf("%w: length must be at least %d", common.ErrInvalidParameters, MinLength)
	case o.Length > MaxLength:
		return "", fmt.Errorf("%w: length must be at most %d", common.ErrInvalidParameters, MaxLength)
	case len(classes) == 0:
		return "", fmt.Errorf("%w: at least one character class is required", common.ErrInvalidParameters)
	case o.Length < len(classes):
		return "", fmt.Errorf("%w: length is shorter than the number of classes", common.ErrInvalidParameters)
	}

	pool := strings.Join(classes, "")
	out := make([]byte, 0, o.Length)

	for _, c := range classes {
		ch, err := pick(c)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
	for len(out) < o.Length {
		ch, err := pick(pool)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

// Describe reports the length of password and which classes it contains.
// Anything that is not a letter or digit counts as a symbol.
func Describe(password string) Options {
	o := Options{Length: utf8.RuneCountInString(password)}
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			o.UseLower = true
		case unicode.IsUpper(r):
			o.UseUpper = true
		case unicode.IsDigit(r):
			o.UseDigits = true
		default:
			o.UseSymbols = true
		}
	}
	return o
}

// EvaluateStrength scores a password in [0, 100]:
// min(40, 4*length) + 15 per class present among lowercase, uppercase,
// digit and other.
func EvaluateStrength(password string) int {
	if password == "" {
		return 0
	}

	o := Describe(password)
	return min(40, 4*o.Length) + 15*len(o.classes())
}

func randIntn(n int) (int, error) {
	v, err := rand.Int(randReader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random source: %w", err)
	}
	return int(v.Int64()), nil
}

func pick(set string) (byte, error) {
	i, err := randIntn(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// shuffle is a Fisher–Yates shuffle over the secure source.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randIntn(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
