package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Schema holds every table the service owns.
const Schema = "nestpay"

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// prepare creates the schema and points goose at the embedded migrations.
func prepare(db *sql.DB) error {
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + Schema); err != nil {
		return errors.Wrapf(err, "create schema %s", Schema)
	}
	goose.SetBaseFS(embeddedMigrations)
	goose.SetTableName(Schema + ".goose_db_version")
	return goose.SetDialect("postgres")
}

func Up(db *sql.DB) error {
	if err := prepare(db); err != nil {
		return err
	}
	return errors.Wrap(goose.Up(db, migrationsDir), "migrate up")
}

// Down rolls back the most recent migration.
func Down(db *sql.DB) error {
	if err := prepare(db); err != nil {
		return err
	}
	return errors.Wrap(goose.Down(db, migrationsDir), "migrate down")
}

func Status(db *sql.DB) error {
	if err := prepare(db); err != nil {
		return err
	}
	return errors.Wrap(goose.Status(db, migrationsDir), "migrate status")
}

// RunMigrations opens its own connection and applies all pending migrations.
func RunMigrations(dbURL string, logger zerolog.Logger) error {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer db.Close()

	if err := Up(db); err != nil {
		return err
	}
	logger.Info().Str("schema", Schema).Msg("migrations completed successfully")
	return nil
}

type gooseAdapter struct {
	logger zerolog.Logger
}

// NewGooseAdapter routes goose output through zerolog.
func NewGooseAdapter(logger zerolog.Logger) goose.Logger {
	return &gooseAdapter{logger: logger.With().Str("component", "goose").Logger()}
}

func (a *gooseAdapter) Fatalf(format string, v ...interface{}) {
	a.logger.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (a *gooseAdapter) Printf(format string, v ...interface{}) {
	a.logger.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
