// Package database is the SQLite persistence layer: the folder taxonomy,
// matching rules, scanned file records, the organized-file audit log and
// the batch-rename undo log.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/mwhitford/filecabinet/pkg/logger"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("db")
}

// CabinetDB represents the database connection and operations
type CabinetDB struct {
	db *sql.DB
}

// NewCabinetDB opens (creating if needed) the database at path
func NewCabinetDB(path string) (*CabinetDB, error) {
	log.WithField("path", path).Info("Initializing database")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	cab := &CabinetDB{db: db}
	if err := cab.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return cab, nil
}

// Close closes the database connection
func (d *CabinetDB) Close() error {
	return d.db.Close()
}

// init creates all necessary tables and indexes
func (d *CabinetDB) init() error {
	log.Debug("Creating tables and indexes")

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS areas (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		range_start INTEGER NOT NULL,
		range_end INTEGER NOT NULL
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY,
		number INTEGER UNIQUE NOT NULL,
		name TEXT NOT NULL
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS folders (
		id INTEGER PRIMARY KEY,
		number TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		category_number INTEGER NOT NULL,
		keywords TEXT,
		storage_path TEXT,
		FOREIGN KEY (category_number) REFERENCES categories(number) ON DELETE RESTRICT
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec("CREATE INDEX IF NOT EXISTS idx_folders_category ON folders(category_number)"); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS drives (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_path TEXT NOT NULL,
		is_default INTEGER DEFAULT 0
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS rules (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		rule_type TEXT CHECK(rule_type IN ('extension', 'keyword', 'path', 'regex', 'compound', 'date')),
		pattern TEXT NOT NULL,
		target_type TEXT CHECK(target_type IN ('folder', 'category', 'area')),
		target_id TEXT NOT NULL,
		priority INTEGER DEFAULT 0,
		exclude_pattern TEXT,
		is_active INTEGER DEFAULT 1,
		match_count INTEGER DEFAULT 0,
		created_at INTEGER DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER DEFAULT (strftime('%s', 'now'))
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec("CREATE INDEX IF NOT EXISTS idx_rules_active ON rules(is_active, priority DESC)"); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS scanned_files (
		id INTEGER PRIMARY KEY,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		extension TEXT,
		file_type TEXT,
		size_bytes INTEGER,
		scan_session_id TEXT NOT NULL
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec("CREATE INDEX IF NOT EXISTS idx_scanned_session ON scanned_files(scan_session_id)"); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS organized_files (
		id INTEGER PRIMARY KEY,
		filename TEXT NOT NULL,
		original_path TEXT NOT NULL,
		current_path TEXT NOT NULL,
		target_folder_number TEXT NOT NULL,
		extension TEXT,
		file_type TEXT,
		size_bytes INTEGER,
		status TEXT CHECK(status IN ('moved', 'undone')) DEFAULT 'moved',
		timestamp INTEGER DEFAULT (strftime('%s', 'now'))
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS rename_batches (
		id TEXT PRIMARY KEY,
		directory TEXT NOT NULL,
		created_at INTEGER DEFAULT (strftime('%s', 'now'))
	)`); err != nil {
		return err
	}

	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS rename_entries (
		id INTEGER PRIMARY KEY,
		batch_id TEXT NOT NULL,
		original_path TEXT NOT NULL,
		renamed_path TEXT NOT NULL,
		original_name TEXT NOT NULL,
		new_name TEXT NOT NULL,
		FOREIGN KEY (batch_id) REFERENCES rename_batches(id) ON DELETE CASCADE
	)`); err != nil {
		return err
	}

	log.Debug("Database initialization complete")
	return nil
}
