package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLiteDBName is the database file created under the data path.
const SQLiteDBName = "cineshelf.db"

var errNotInitialized = errors.New("sqlite storage not initialized")

// SQLiteStorage implements StorageInterface on a SQLite database. Each
// operation is a single statement, so it needs no load/persist cycle.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	dataPath string
}

func NewSQLiteStorage(dataPath string) *SQLiteStorage {
	dbPath := filepath.Join(dataPath, SQLiteDBName)
	return &SQLiteStorage{
		dbPath:   dbPath,
		dataPath: dataPath,
	}
}

func (s *SQLiteStorage) Initialize() error {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(s.dataPath, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	s.db = db

	if err := s.RunMigrations(); err != nil {
		return err
	}

	log.Info().Str("path", s.dbPath).Msg("SQLite database initialized")
	return nil
}

func (s *SQLiteStorage) ListMovies() (*Catalog, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}

	rows, err := s.db.Query(`SELECT title, year, rating, poster FROM movies ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer rows.Close()

	catalog := NewCatalog()
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.Title, &m.Year, &m.Rating, &m.Poster); err != nil {
			return nil, &ParseError{Path: s.dbPath, Field: "movies", Err: err}
		}
		if err := checkRating(m.Rating); err != nil {
			return nil, &ParseError{Path: s.dbPath, Field: m.Title, Err: err}
		}
		catalog.Set(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read movies: %w", err)
	}

	return catalog, nil
}

func (s *SQLiteStorage) AddMovie(title string, year int, rating float64, poster string) error {
	if s.db == nil {
		return errNotInitialized
	}

	// Upsert keeps the original rowid, so an overwrite keeps its position.
	query := `
	INSERT INTO movies (title, year, rating, poster, created_at, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(title) DO UPDATE SET
		year = excluded.year,
		rating = excluded.rating,
		poster = excluded.poster,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.Exec(query, title, year, rating, poster); err != nil {
		return fmt.Errorf("failed to save movie %q: %w", title, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteMovie(title string) error {
	if s.db == nil {
		return errNotInitialized
	}

	if _, err := s.db.Exec(`DELETE FROM movies WHERE title = ?`, title); err != nil {
		return fmt.Errorf("failed to delete movie %q: %w", title, err)
	}
	return nil
}

func (s *SQLiteStorage) UpdateMovie(title string, rating float64) error {
	if s.db == nil {
		return errNotInitialized
	}

	_, err := s.db.Exec(`UPDATE movies SET rating = ?, updated_at = CURRENT_TIMESTAMP WHERE title = ?`, rating, title)
	if err != nil {
		return fmt.Errorf("failed to update movie %q: %w", title, err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Path returns the database file.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Migration management methods
func (s *SQLiteStorage) GetMigrationManager() *MigrationManager {
	return NewMigrationManager(s.db)
}

func (s *SQLiteStorage) GetDatabaseVersion() (int64, error) {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return 0, err
	}
	return migrationManager.Version()
}

func (s *SQLiteStorage) RunMigrations() error {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	return migrationManager.Up()
}

func (s *SQLiteStorage) RollbackMigration() error {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return err
	}
	return migrationManager.Down()
}

func (s *SQLiteStorage) ResetDatabase() error {
	migrationManager := s.GetMigrationManager()
	if err := migrationManager.Initialize(); err != nil {
		return err
	}
	return migrationManager.Reset()
}
