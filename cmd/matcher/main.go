package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/config"
	"github.com/listing-reconcile/internal/db"
	"github.com/listing-reconcile/internal/logging"
)

var (
	// Global configuration and logger, set up before any subcommand runs
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "matcher",
		Short:         "Listing to provider phone reconciliation",
		Long:          `Matches scraped business listings to canonical provider records and backfills missing phone numbers`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			logger, err = logging.New(cfg.LogLevel, cfg.PrettyLogs)
			if err != nil {
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createUploadCmd())
	rootCmd.AddCommand(createPingCmd())
	rootCmd.AddCommand(createGraphCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// connect opens the datastore pool for commands that need it
func connect(ctx context.Context) (*db.Connection, *db.RecordRepository, error) {
	conn, err := db.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return conn, db.NewRecordRepository(conn.DB, logger), nil
}

// createPingCmd creates a command to test database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, repo, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			fmt.Println("Database connection successful!")

			count, err := repo.CountActive(cmd.Context())
			if err != nil {
				logger.Warn("could not count active records", zap.Error(err))
				return nil
			}
			fmt.Printf("Active provider records: %d\n", count)
			return nil
		},
	}
}
