package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stanstork/nestpay-api/internal/migration"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	goose.SetLogger(migration.NewGooseAdapter(logger))

	var databaseURL string
	rootCmd := &cobra.Command{
		Use:           "nestpay-migrate",
		Short:         "Manage the Nest Pay database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("NESTPAY_DATABASE_URL"),
		"PostgreSQL connection string (defaults to $NESTPAY_DATABASE_URL)")

	withDB := func(run func(db *sql.DB) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(databaseURL) == "" {
				return errors.New("database url is required: pass --database-url or set NESTPAY_DATABASE_URL")
			}
			db, err := sql.Open("postgres", databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Ping(); err != nil {
				return fmt.Errorf("failed to reach database: %w", err)
			}
			return run(db)
		}
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  withDB(migration.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE:  withDB(migration.Down),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE:  withDB(migration.Status),
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
