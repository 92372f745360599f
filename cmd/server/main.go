package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/twinlink-server/internal/app"
	"github.com/vovakirdan/twinlink-server/internal/auth"
	"github.com/vovakirdan/twinlink-server/internal/config"
	twinlog "github.com/vovakirdan/twinlink-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "twinlink",
		Short:        "Realtime signaling and event delivery server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	serve := newServeCmd(&configPath)
	root.AddCommand(serve, newTokenCmd(&configPath))
	// Running without a subcommand serves.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := twinlog.New("info")
			cfg, path, err := config.Load(bootLogger, *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.UpdateFrom(overrides)

			logger := twinlog.New(cfg.LogLevel)
			logger.Info().Str("config", path).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	cmd.Flags().StringVar(&overrides.SignalPolicy, "signal-policy", "", "signal policy (open, connected)")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "directory database path")
	cmd.Flags().StringVar(&overrides.EventSource, "event-source", "", "external event source (none, nats, redis)")

	return cmd
}

func newTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token signed with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := config.Load(twinlog.Nop(), *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			jwtConfig := app.JWTConfig(&cfg)
			if ttl > 0 {
				jwtConfig.TTL = ttl
			}
			token, err := auth.NewService(jwtConfig, "").IssueToken(userID, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to 24h)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
