package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/identity-in-go/pkg/config"
	"github.com/doodlesbykumbi/identity-in-go/pkg/server"
	"github.com/doodlesbykumbi/identity-in-go/pkg/server/endpoints"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the identity provisioning server",
	Long: `Run the identity provisioning server.

The server requires IDENTITY_DATA_KEY, DATABASE_URL and MIRROR_DATABASE_URL,
unless --in-memory is set. By default, migrations of both databases are run
on startup. Use --no-migrate to skip.

Changes to the config file are applied without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inMemory, _ := cmd.Flags().GetBool("in-memory")
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")

		return runServer(host, port, inMemory, noMigrate)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Bool("in-memory", false, "keep all state in memory (no databases)")
}

func runServer(host, port string, inMemory, noMigrate bool) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !inMemory && !noMigrate {
		logger.Info("Running database migrations...")
		if err := forEachSchema("", runMigrations); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, err := newStack(cfg, logger, registry, inMemory)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.provisioner(cfg)
	if err != nil {
		return err
	}
	provisioner := &swappableProvisioner{}
	provisioner.Store(p)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		err := config.Watch(ctx, logger, func(next *config.IdentityConfig) {
			if err := next.Validate(); err != nil {
				logger.WithError(err).Warn("Ignoring invalid configuration")
				return
			}
			p, err := s.provisioner(next)
			if err != nil {
				logger.WithError(err).Warn("Ignoring configuration")
				return
			}
			provisioner.Store(p)
		})
		if err != nil {
			logger.WithError(err).Debug("Config file is not watched")
		}
	}()

	srv := server.NewServer(provisioner, s.stores.SigningKeys, s.health, registry, host, port)
	endpoints.RegisterAll(srv)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running server at http://%s:%s...", host, port)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
