package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RotationDB manages the SQLite database holding rotation history
type RotationDB struct {
	db *sql.DB
}

// Rotation represents a single per-file rotation event
type Rotation struct {
	ID            int64
	Timestamp     time.Time
	Action        string // COMPRESS, DRY_RUN, SKIP, ERROR
	Path          string
	FileName      string
	Size          int64
	BytesSaved    int64
	AgeDays       int
	ThresholdDays int
	Detail        string
	CreatedAt     time.Time
}

// New opens (creating if needed) the rotation database and initializes the
// schema. WAL mode is enabled so the query CLI can read while a run writes.
func New(dbPath string) (*RotationDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection by executing a simple query instead of Ping()
	// This ensures the database file is created if it doesn't exist
	if _, err = db.Exec("SELECT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	rdb := &RotationDB{db: db}
	if err = rdb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return rdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *RotationDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		size INTEGER NOT NULL,
		bytes_saved INTEGER NOT NULL DEFAULT 0,
		age_days INTEGER,
		threshold_days INTEGER,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON rotations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON rotations(action);
	CREATE INDEX IF NOT EXISTS idx_path ON rotations(path);
	CREATE INDEX IF NOT EXISTS idx_size ON rotations(size);
	CREATE INDEX IF NOT EXISTS idx_created_at ON rotations(created_at);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Record inserts one rotation event
func (d *RotationDB) Record(r Rotation) error {
	query := `
	INSERT INTO rotations (
		timestamp, action, path, file_name, size, bytes_saved,
		age_days, threshold_days, detail
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		r.Timestamp,
		r.Action,
		r.Path,
		filepath.Base(r.Path),
		r.Size,
		r.BytesSaved,
		r.AgeDays,
		r.ThresholdDays,
		r.Detail,
	)

	return err
}

// Close closes the database connection
func (d *RotationDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *RotationDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// PruneOldRecords removes history older than the given number of days
func (d *RotationDB) PruneOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM rotations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
