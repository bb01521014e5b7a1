package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/shrimpsizemoose/semla/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn, migrationsDir string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	// The pragma below and :memory: databases are per-connection, so the
	// pool must stay at a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
		IsUniqueViolation:     isSQLiteError(sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey),
		IsForeignKeyViolation: isSQLiteError(sqlite3.ErrConstraintForeignKey),
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

func isSQLiteError(codes ...sqlite3.ErrNoExtended) func(error) bool {
	return func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		for _, code := range codes {
			if sqliteErr.ExtendedCode == code {
				return true
			}
		}
		return false
	}
}

// translateToSQLite converts Postgres SQL to SQLite dialect. Replacements are
// ordered: longer phrases must run before their substrings.
func translateToSQLite(sql string) string {
	replacements := []struct {
		from, to string
	}{
		{"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"DOUBLE PRECISION", "REAL"},
		{"BIGINT", "INTEGER"},
		{"BOOLEAN", "INTEGER"},
		{"UUID", "TEXT"},
		{"VARCHAR(100)", "TEXT"},
		{"VARCHAR(1)", "TEXT"},
		{"TRUE", "1"},
		{"FALSE", "0"},
		{"now()", "CURRENT_TIMESTAMP"},
	}
	result := sql
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.from, r.to)
	}
	return result
}
