// Package duckdb exports feature tables, attributes and BED intervals to
// DuckDB for ad-hoc SQL queries. Base maps are cached as gob files.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// Store manages a DuckDB connection holding exported tables.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS features (
			row_id BIGINT PRIMARY KEY,
			seqname VARCHAR,
			source VARCHAR,
			feature VARCHAR,
			start BIGINT,
			end_ BIGINT,
			score VARCHAR,
			strand VARCHAR,
			frame VARCHAR,
			attribute VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS attributes (
			row_id BIGINT,
			key VARCHAR,
			value VARCHAR,
			PRIMARY KEY (row_id, key)
		)`,
	}
	for _, table := range bedTables {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chrom VARCHAR,
			chrom_start BIGINT,
			chrom_end BIGINT,
			name VARCHAR,
			score VARCHAR,
			strand VARCHAR
		)`, table))
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
