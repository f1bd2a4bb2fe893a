// Command issue-token prints a bearer token for an existing account.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/auth"
	"github.com/LiftThanakorn/income-expense-tracker/internal/cli"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
)

func main() {
	email := flag.String("email", "", "account email")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_EXPIRES_IN)")
	flag.Parse()

	cfg, logger := cli.Bootstrap(log.ComponentAuth)
	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -email user@example.com [-ttl 24h]")
		os.Exit(2)
	}
	expires := cfg.JWTExpiresIn
	if *ttl > 0 {
		expires = *ttl
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	be := cli.OpenBackend(ctx, cfg, logger)
	if be.Cleanup != nil {
		defer be.Cleanup()
	}

	sess, err := auth.NewAuthenticator(be.Backend, auth.NewTokenService(cfg.JWTSecret, expires), logger).IssueFor(ctx, *email)
	if err != nil {
		logger.Error("Failed to issue token", log.FieldError, err, "email", *email)
		os.Exit(1)
	}
	fmt.Printf("owner:   %s\nexpires: %s\ntoken:   %s\n", sess.User.ID, sess.ExpiresAt, sess.Token)
}
