package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	synthia "github.com/CYBERELLUM/qblock-synth-ia"
)

// SQLiteSnapshotStore implements synthia.SnapshotStore using a local SQLite
// database, for satellites that need durable offline state without extra
// infrastructure.
//
// It uses one table (auto-created if AutoMigrate is true):
//   - {prefix}_kv: (namespace, k, v)
type SQLiteSnapshotStore struct {
	db     *sql.DB
	prefix string
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	Prefix      string // table prefix, default "satellite"
	AutoMigrate bool   // create the table if not exists, default true
}

// OpenSQLiteSnapshotStore opens (or creates) the database file at path and
// returns a store over it.
func OpenSQLiteSnapshotStore(path string, config ...SQLiteStoreConfig) (*SQLiteSnapshotStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return NewSQLiteSnapshotStore(db, config...)
}

// NewSQLiteSnapshotStore creates a SnapshotStore over an already opened
// sql.DB with a sqlite3 driver.
func NewSQLiteSnapshotStore(db *sql.DB, config ...SQLiteStoreConfig) (*SQLiteSnapshotStore, error) {
	cfg := SQLiteStoreConfig{Prefix: "satellite", AutoMigrate: true}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "satellite"
	}

	s := &SQLiteSnapshotStore{db: db, prefix: cfg.Prefix}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			return nil, fmt.Errorf("sqlite store: auto-migrate failed: %w", err)
		}
	}
	return s, nil
}

func (s *SQLiteSnapshotStore) table() string { return s.prefix + "_kv" }

func (s *SQLiteSnapshotStore) migrate() error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		namespace TEXT NOT NULL,
		k         TEXT NOT NULL,
		v         TEXT NOT NULL,
		PRIMARY KEY (namespace, k)
	)`, s.table())
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLiteSnapshotStore) Get(namespace, key string) (string, error) {
	q := fmt.Sprintf(`SELECT v FROM %s WHERE namespace = ? AND k = ?`, s.table())
	var v string
	err := s.db.QueryRow(q, namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *SQLiteSnapshotStore) Set(namespace, key, value string) error {
	q := fmt.Sprintf(`INSERT INTO %s (namespace, k, v) VALUES (?, ?, ?)
		ON CONFLICT(namespace, k) DO UPDATE SET v = excluded.v`, s.table())
	_, err := s.db.Exec(q, namespace, key, value)
	return err
}

func (s *SQLiteSnapshotStore) Delete(namespace, key string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE namespace = ? AND k = ?`, s.table())
	_, err := s.db.Exec(q, namespace, key)
	return err
}

func (s *SQLiteSnapshotStore) ListKeys(namespace string) ([]string, error) {
	q := fmt.Sprintf(`SELECT k FROM %s WHERE namespace = ?`, s.table())
	rows, err := s.db.Query(q, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, rows.Err()
}

func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}

// Compile-time interface check.
var _ synthia.SnapshotStore = (*SQLiteSnapshotStore)(nil)
