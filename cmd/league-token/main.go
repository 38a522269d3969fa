package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/noah-isme/league-scheduler-api/internal/models"
	"github.com/noah-isme/league-scheduler-api/internal/service"
	"github.com/noah-isme/league-scheduler-api/pkg/config"
)

// league-token mints a bearer token signed with the configured JWT secret, for local use and
// for operators whose identity provider shares the secret.
func main() {
	var (
		userID   string
		role     string
		email    string
		fullName string
	)
	flag.StringVar(&userID, "user", "", "User ID placed in the token subject")
	flag.StringVar(&role, "role", string(models.RoleCommissioner), "ADMIN, COMMISSIONER or VIEWER")
	flag.StringVar(&email, "email", "", "Optional email claim")
	flag.StringVar(&fullName, "name", "", "Optional full name claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction && cfg.JWT.Secret == "dev_secret" {
		log.Fatal("refusing to mint tokens with the default secret in production")
	}

	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	token, expiresAt, err := tokens.Issue(userID, models.UserRole(strings.ToUpper(role)), email, fullName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Println(token)
}
