package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirerelay/internal/app"
	"github.com/vovakirdan/wirerelay/internal/auth"
	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/log"
)

func main() {
	// Optional .env, read before viper looks at the environment.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	root := &cobra.Command{
		Use:          "wirerelay",
		Short:        "Real-time presence and message relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			boot := log.New("info", "console")

			cfg, path, err := config.Load(boot, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().Str("config", path).Str("policy", cfg.Presence.DisconnectPolicy).Dur("grace", cfg.Presence.GracePeriod).Msg("configuration loaded")

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().Str("addr", cfg.Addr).Msg("starting wirerelay")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config file")
	flags.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&overrides.Presence.DisconnectPolicy, "disconnect-policy", "", "disconnect policy (immediate, grace)")
	flags.DurationVar(&overrides.Presence.GracePeriod, "grace-period", 0, "grace period before a lost connection goes offline")

	root.AddCommand(newHashKeyCmd(), newIssueTokenCmd())
	return root
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <api-key>",
		Short: "Print the bcrypt hash to put in relay.api_key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

func newIssueTokenCmd() *cobra.Command {
	var (
		secret   string
		issuer   string
		audience string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue-token <service>",
		Short: "Sign a bearer token for a trusted backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken(&auth.JWTConfig{
				Secret:   []byte(secret),
				Issuer:   issuer,
				Audience: audience,
				TTL:      ttl,
			}, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&secret, "secret", os.Getenv("WIRERELAY_RELAY_JWT_SECRET"), "HS256 signing secret")
	flags.StringVar(&issuer, "issuer", os.Getenv("WIRERELAY_RELAY_JWT_ISSUER"), "token issuer")
	flags.StringVar(&audience, "audience", os.Getenv("WIRERELAY_RELAY_JWT_AUDIENCE"), "token audience")
	flags.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}
