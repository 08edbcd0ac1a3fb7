package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

// MigrationManager runs the embedded goose migrations for the SQLite backend.
type MigrationManager struct {
	db *sql.DB
}

func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

func (m *MigrationManager) Initialize() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return nil
}

func (m *MigrationManager) Up() error {
	if err := goose.Up(m.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Msg("Database migrations completed successfully")
	return nil
}

func (m *MigrationManager) Down() error {
	if err := goose.Down(m.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	log.Info().Msg("Database migration rolled back successfully")
	return nil
}

// Status writes the migration table to w. goose only reports it through its
// logger, so the logger points at w for the duration of the call.
func (m *MigrationManager) Status(w io.Writer) error {
	goose.SetLogger(writerLogger{w: w})
	defer goose.SetLogger(gooseLogger{})

	if err := goose.Status(m.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}

func (m *MigrationManager) Version() (int64, error) {
	version, err := goose.GetDBVersion(m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}

func (m *MigrationManager) Reset() error {
	if err := goose.Reset(m.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	log.Info().Msg("Database reset completed successfully")
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatal().Msgf(format, v...)
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

type writerLogger struct {
	w io.Writer
}

func (l writerLogger) Fatalf(format string, v ...interface{}) {
	gooseLogger{}.Fatalf(format, v...)
}

func (l writerLogger) Printf(format string, v ...interface{}) {
	fmt.Fprintf(l.w, strings.TrimSuffix(format, "\n")+"\n", v...)
}
