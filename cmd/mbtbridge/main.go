package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neststoplabs/mbtbridge/internal/auth"
	"github.com/neststoplabs/mbtbridge/internal/config"
	"github.com/neststoplabs/mbtbridge/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:   "mbtbridge",
		Short: "Discord to MyBusTimes bridge",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway listener and the HTTP control plane",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.GetInfo())
		},
	}

	var tokenTTL time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint a JWT for the HTTP control plane",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			subject := "mbtbridge"
			if len(args) == 1 {
				subject = args[0]
			}
			token, expires, err := auth.GenerateToken(subject, cfg.Auth.JWTSecret, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Println(token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	root.AddCommand(serveCmd, versionCmd, tokenCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
