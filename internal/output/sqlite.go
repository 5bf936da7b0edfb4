package output

import (
	"database/sql"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nemanja-m/memr/pkg/jobs"
)

const (
	dropResultsTable   = `DROP TABLE IF EXISTS results`
	createResultsTable = `CREATE TABLE results (key TEXT PRIMARY KEY, value TEXT NOT NULL)`
	insertResult       = `INSERT INTO results (key, value) VALUES (?, ?)`
)

// SQLiteWriter stores results in the "results" table of a sqlite3 database. Every Write
// replaces the table contents in a single transaction.
type SQLiteWriter struct {
	db *sql.DB
}

func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := openDatabase(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteWriter{db: db}, nil
}

func openDatabase(path string) (*sql.DB, error) {
	options := "?" + "_busy_timeout=10000" +
		"&" + "_journal_mode=WAL" +
		"&" + "_synchronous=NORMAL"
	db, err := sql.Open("sqlite3", path+options)
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return db, nil
}

func (s *SQLiteWriter) Write(records iter.Seq[jobs.Result]) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err := tx.Exec(dropResultsTable); err != nil {
		return fmt.Errorf("dropping results table: %w", err)
	}
	if _, err := tx.Exec(createResultsTable); err != nil {
		return fmt.Errorf("creating results table: %w", err)
	}

	stmt, err := tx.Prepare(insertResult)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for record := range records {
		if _, err := stmt.Exec(record.Key, record.Value); err != nil {
			return fmt.Errorf("inserting result %q: %w", record.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing results: %w", err)
	}
	return nil
}

func (s *SQLiteWriter) Close() error {
	return s.db.Close()
}
