// Package main is the entry point of the curio engine host.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/curio/internal/profile"
	"github.com/hrygo/curio/server"
	"github.com/hrygo/curio/store"
	"github.com/hrygo/curio/store/db/postgres"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "curio",
	Short: "curio is a personalized content discovery engine",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:      viper.GetString("mode"),
			Addr:      viper.GetString("addr"),
			Port:      viper.GetInt("port"),
			DSN:       viper.GetString("dsn"),
			VectorDSN: viper.GetString("vector-dsn"),
			Version:   version,
		}
		instanceProfile.FromEnv()
		if configFile := viper.GetString("config"); configFile != "" {
			if err := instanceProfile.FromFile(configFile); err != nil {
				return err
			}
		}
		if err := instanceProfile.Validate(); err != nil {
			return err
		}
		return run(instanceProfile)
	},
}

func run(p *profile.Profile) error {
	logLevel := slog.LevelInfo
	if p.IsDev() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo store.Repository
	if p.DSN != "" {
		db, err := postgres.NewDB(p.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = db
	} else {
		// No relational store: degraded mode with empty profiles and no
		// popularity fallback data. Useful for local vector-only smoke runs.
		logger.Warn("no repository DSN configured, running with an empty in-memory repository")
		repo = store.NewMockRepository()
	}

	srv, err := server.NewServer(ctx, p, repo, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the host, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address for the HTTP host")
	rootCmd.PersistentFlags().Int("port", 0, "binding port for the HTTP host")
	rootCmd.PersistentFlags().String("dsn", "", "DSN of the relational store")
	rootCmd.PersistentFlags().String("vector-dsn", "", "DSN of the pgvector-enabled vector store (defaults to --dsn)")
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("curio")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
