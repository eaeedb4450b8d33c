package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nerrad567/telemetry-core/internal/auth"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

// runToken prints a signed admin API token. The signing secret comes from
// the loaded configuration, so TELEMETRYCORE_JWT_SECRET applies as usual.
func runToken(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("token", flag.ContinueOnError)
	flags.SetOutput(out)
	subject := flags.String("subject", "operator", "token subject")
	role := flags.String("role", string(auth.RoleViewer), "role: viewer or admin")
	ttl := flags.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	configPath := flags.String("config", getConfigPath(), "configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	secret := os.Getenv("TELEMETRYCORE_JWT_SECRET")
	if secret == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		secret = cfg.Security.JWT.Secret
	}
	if secret == "" {
		return errors.New("no JWT secret configured; the admin API is unauthenticated")
	}

	token, err := auth.GenerateToken(*subject, auth.Role(*role), secret, *ttl)
	if err != nil {
		return err
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = auth.DefaultTokenTTL
	}
	fmt.Fprintf(os.Stderr, "role=%s subject=%s expires=%s\n",
		*role, *subject, time.Now().Add(lifetime).UTC().Format(time.RFC3339))
	fmt.Fprintln(out, token)
	return nil
}
