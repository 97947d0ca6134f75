// Command issue-token mints a bearer token for local testing of the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"

	"github.com/garyjia/erp-requisitions/internal/config"
	httpserver "github.com/garyjia/erp-requisitions/internal/interfaces/http"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	memberID := flag.String("member", "", "Member id (uid claim)")
	orgID := flag.String("org", "", "Organization id (org claim)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *memberID == "" || *orgID == "" {
		fmt.Fprintln(os.Stderr, "Usage: issue-token -member <id> -org <id> [-ttl 24h]")
		os.Exit(2)
	}

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	token, err := httpserver.IssueToken(httpserver.AuthConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	}, *memberID, *orgID, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
