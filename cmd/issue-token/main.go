package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/garyjia/travel-report/internal/config"
	"github.com/garyjia/travel-report/internal/infrastructure/auth"
)

// Prints a bearer token for a user id, signed with the configured secret.
// Identity is owned by an external system; this is for operators and local
// testing.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	userID := flag.Int64("user", 0, "id of the user the token acts as")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: issue-token --user <id> [--config configs/config.yaml]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	authenticator, err := auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create authenticator: %v\n", err)
		os.Exit(1)
	}

	token, err := authenticator.Issue(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
