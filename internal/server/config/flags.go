package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

var flagNames = []string{
	"l", "a", "d", "i", "k", "K", "t", "r", "x", "m", "S", "R", "P",
	"L", "F", "u", "p", "b", "g", "e",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-l string   HTTP bind address (e.g., ":8080")
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-i string   token issuer
//	-k string   RS256 private key PEM path
//	-K string   RS256 public key PEM path
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-x string   secret cipher key
//	-m string   cipher mode (deterministic | sealed)
//	-S string   session store (memory | postgres | redis)
//	-R string   redis address
//	-P duration session prune interval (e.g., "1m")
//	-L string   log level
//	-F string   log format (json | text)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// components do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.StringVar(&config.PrivateKeyPath, "k", config.PrivateKeyPath, "private key PEM path")
	fs.StringVar(&config.PublicKeyPath, "K", config.PublicKeyPath, "public key PEM path")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.CipherKey, "x", config.CipherKey, "cipher key")
	fs.StringVar(&config.CipherMode, "m", config.CipherMode, "cipher mode")
	fs.StringVar(&config.SessionStore, "S", config.SessionStore, "session store")
	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.DurationVar(&config.PruneInterval, "P", config.PruneInterval, "session prune interval")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "F", config.LogFormat, "log format")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
