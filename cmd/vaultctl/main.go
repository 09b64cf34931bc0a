// Command vaultctl holds operator helpers for the vault server: generating
// the RS256 signing pair, generating passwords, hashing secrets and
// downloading vault exports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/forge"
	"github.com/dmitrijs2005/gophvault/internal/netx"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const usage = `usage: vaultctl <command> [flags]

commands:
  genkeys   write an RSA key pair (private.pem, public.pem)
  genpass   generate a password and print its strength
  hash      read a secret from the terminal and print its bcrypt hash
  fetch     download an export document from its presigned URL
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "genkeys":
		err = genKeys(args[1:], stdout, stderr)
	case "genpass":
		err = genPass(args[1:], stdout, stderr)
	case "hash":
		err = hash(args[1:], stdout, stderr)
	case "fetch":
		err = fetch(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func genKeys(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("genkeys", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", ".", "output directory")
	bits := fs.Int("bits", 2048, "RSA key size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := auth.GenerateKeyPair(*bits)
	if err != nil {
		return err
	}
	privPEM, pubPEM, err := auth.EncodeKeyPairPEM(key)
	if err != nil {
		return err
	}

	dir, err := filex.EnsureDir(*out)
	if err != nil {
		return err
	}
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	if err := filex.WriteSecretFile(privPath, privPEM); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %s\nwrote %s\n", privPath, pubPath)
	return nil
}

func genPass(args []string, stdout, stderr io.Writer) error {
	d := forge.DefaultOptions()

	fs := flag.NewFlagSet("genpass", flag.ContinueOnError)
	fs.SetOutput(stderr)
	length := fs.Int("l", d.Length, "password length")
	lower := fs.Bool("lower", d.UseLower, "include lowercase letters")
	upper := fs.Bool("upper", d.UseUpper, "include uppercase letters")
	digits := fs.Bool("digits", d.UseDigits, "include digits")
	symbols := fs.Bool("symbols", d.UseSymbols, "include symbols")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := forge.Generate(forge.Options{
		Length:     *length,
		UseLower:   *lower,
		UseUpper:   *upper,
		UseDigits:  *digits,
		UseSymbols: *symbols,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\nstrength: %d\n", pw, forge.EvaluateStrength(pw))
	return nil
}

func hash(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprint(stderr, "Enter secret: ")
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stderr)
	if err != nil {
		return err
	}
	if len(secret) == 0 {
		return errors.New("empty secret")
	}

	h, err := bcrypt.GenerateFromPassword(secret, *cost)
	clear(secret)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, string(h))
	return nil
}

func fetch(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	url := fs.String("url", "", "presigned export URL")
	out := fs.String("o", "", "write to file instead of stdout")
	timeout := fs.Duration("timeout", 30*time.Second, "download timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *url == "" {
		return errors.New("-url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	body, err := netx.DownloadPresignedURL(ctx, *url)
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = stdout.Write(body)
		return err
	}
	if err := filex.WriteSecretFile(*out, body); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", *out, len(body))
	return nil
}
