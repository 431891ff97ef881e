package store

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the caller (ownership checks collapse "absent" and "not owned" into one).
var ErrNotFound = errors.New("record not found")

// Store provides record-level access to the backing sqlite database. All
// methods are safe for concurrent use; each call is its own transaction.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_info (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		avatar_path TEXT NOT NULL DEFAULT 'default_avatar.png',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS project_info (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_name TEXT NOT NULL,
		test_style TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES user_info(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS api_info (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES project_info(id),
		case_name TEXT NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		headers TEXT NOT NULL DEFAULT '{}',
		params TEXT NOT NULL DEFAULT '{}',
		body TEXT NOT NULL DEFAULT '{}',
		expected_data TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ui_info (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES project_info(id),
		case_name TEXT NOT NULL,
		base_url TEXT NOT NULL DEFAULT '',
		script_content TEXT NOT NULL DEFAULT '',
		steps TEXT NOT NULL DEFAULT '[]',
		record INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS business_flow (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES project_info(id),
		flow_name TEXT NOT NULL,
		test_type TEXT NOT NULL,
		case_ids TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS test_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES project_info(id),
		report_name TEXT NOT NULL,
		test_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		report_path TEXT,
		passed INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_project ON test_reports(project_id, test_type);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "initialize tables")
	}
	return nil
}
