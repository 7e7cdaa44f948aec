// Command token mints an access token for the manager API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fellowship/internal/auth"
	"fellowship/internal/config"
)

func main() {
	subject := flag.String("subject", "", "token subject, e.g. the manager's email")
	role := flag.String("role", auth.RoleManager, "role claim")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to ACCESS_TTL")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: token -subject <name> [-role manager] [-ttl 12h]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *ttl > 0 {
		cfg.AccessTTL = *ttl
	}

	issuer, err := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tok, err := issuer.Issue(*subject, *role)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}
	fmt.Println(tok.AccessToken)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.ExpiresAt.Format(time.RFC3339))
}
