// Package store provides SQLite persistence for flipwatch alerts.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
//
// The alerts table is append-only: the only permitted mutation is
// flipping the alerted flag once an alert has been handed to delivery.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Alert is one persisted contradiction alert.
// Column names follow the legacy record shape (account, type, tweet1_*,
// tweet2_*, alerted) so the store can run against existing data.
type Alert struct {
	ID         string
	Identity   string
	Kind       string // "sentiment-shift" or "topic-shift"
	Topic      string // set for topic-shift alerts only
	Stmt1ID    string
	Stmt1Text  string
	Stmt1Time  time.Time
	Stmt2ID    string
	Stmt2Text  string
	Stmt2Time  time.Time
	Severity   string // "medium" or "high"
	DetectedAt time.Time
	CreatedAt  time.Time
	Delivered  bool
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	// Build connection string based on database type
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For in-memory databases, limit to 1 connection to avoid issues
	// with multiple connections getting different databases
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Enable WAL mode for file-based databases (not :memory:)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		type TEXT NOT NULL,
		topic TEXT,
		tweet1_id TEXT NOT NULL,
		tweet1_text TEXT,
		tweet1_timestamp DATETIME NOT NULL,
		tweet2_id TEXT NOT NULL,
		tweet2_text TEXT,
		tweet2_timestamp DATETIME NOT NULL,
		severity TEXT NOT NULL,
		detected_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		alerted INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_alerts_account ON alerts(account);
	CREATE INDEX IF NOT EXISTS idx_alerts_account_type ON alerts(account, type);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Append persists one alert. A single INSERT is atomic in SQLite, so a
// failed append leaves no partial record behind.
// Thread-safe: acquires write lock.
func (s *Store) Append(a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO alerts (
			id, account, type, topic,
			tweet1_id, tweet1_text, tweet1_timestamp,
			tweet2_id, tweet2_text, tweet2_timestamp,
			severity, detected_at, created_at, alerted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID,
		a.Identity,
		a.Kind,
		a.Topic,
		a.Stmt1ID,
		a.Stmt1Text,
		a.Stmt1Time,
		a.Stmt2ID,
		a.Stmt2Text,
		a.Stmt2Time,
		a.Severity,
		a.DetectedAt,
		a.CreatedAt,
		boolToInt(a.Delivered),
	)
	if err != nil {
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

// Recent returns up to limit alerts, newest first by created_at.
// Thread-safe: acquires read lock.
func (s *Store) Recent(limit int) ([]Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectAlerts + `
		ORDER BY created_at DESC
		LIMIT ?
	`
	return s.queryAlerts(query, limit)
}

// ByIdentity returns all alerts for one identity, newest first.
// Thread-safe: acquires read lock.
func (s *Store) ByIdentity(identity string) ([]Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectAlerts + `
		WHERE account = ?
		ORDER BY created_at DESC
	`
	return s.queryAlerts(query, identity)
}

// ByKind returns all alerts of one contradiction kind, newest first.
// Thread-safe: acquires read lock.
func (s *Store) ByKind(kind string) ([]Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectAlerts + `
		WHERE type = ?
		ORDER BY created_at DESC
	`
	return s.queryAlerts(query, kind)
}

// HasRecentAlert reports whether an alert for (identity, kind) exists
// with created_at at or after since. The cooldown gate's suppression
// check.
// Thread-safe: acquires read lock.
func (s *Store) HasRecentAlert(identity, kind string, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM alerts
		WHERE account = ? AND type = ? AND created_at >= ?
	`, identity, kind, since).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkDelivered flips the alerted flag for one alert.
// Thread-safe: acquires write lock.
func (s *Store) MarkDelivered(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE alerts SET alerted = 1 WHERE id = ?", id)
	return err
}

// Count returns the total number of stored alerts.
// Thread-safe: acquires read lock.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM alerts").Scan(&count)
	return count, err
}

const selectAlerts = `
	SELECT id, account, type, topic,
		tweet1_id, tweet1_text, tweet1_timestamp,
		tweet2_id, tweet2_text, tweet2_timestamp,
		severity, detected_at, created_at, alerted
	FROM alerts
`

// queryAlerts is a helper that executes a query and scans results into Alerts.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryAlerts(query string, args ...any) ([]Alert, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var topic sql.NullString
		var alertedInt int
		err := rows.Scan(
			&a.ID,
			&a.Identity,
			&a.Kind,
			&topic,
			&a.Stmt1ID,
			&a.Stmt1Text,
			&a.Stmt1Time,
			&a.Stmt2ID,
			&a.Stmt2Text,
			&a.Stmt2Time,
			&a.Severity,
			&a.DetectedAt,
			&a.CreatedAt,
			&alertedInt,
		)
		if err != nil {
			return nil, err
		}
		a.Topic = topic.String
		a.Delivered = alertedInt != 0
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
