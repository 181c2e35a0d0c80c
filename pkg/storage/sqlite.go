package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id          TEXT PRIMARY KEY,
	target      TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
	id          TEXT PRIMARY KEY,
	scan_id     TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	check_name  TEXT NOT NULL,
	severity    TEXT NOT NULL,
	title       TEXT NOT NULL,
	detail      TEXT NOT NULL,
	detected_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_scan ON findings(scan_id);
CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);
`

// SQLiteBackend implements Backend using SQLite. It is suitable for
// single-instance deployments that need scan history across restarts.
//
// The database runs in WAL mode for better concurrent read performance;
// SQLite supports one writer, so the connection pool is capped at a single
// connection.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path and
// initializes the schema.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// SaveScan persists the scan and its findings in one transaction, replacing
// any prior scan with the same ID.
func (b *SQLiteBackend) SaveScan(ctx context.Context, scan *ScanResult) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO scans (id, target, status, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?)`,
		scan.ID, scan.Target, string(scan.Status),
		scan.StartedAt.UnixNano(), scan.FinishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan %s: %w", scan.ID, err)
	}

	// REPLACE on the scan row does not cascade; clear stale findings first.
	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE scan_id = ?`, scan.ID); err != nil {
		return fmt.Errorf("failed to clear findings for scan %s: %w", scan.ID, err)
	}

	for _, f := range scan.Findings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO findings (id, scan_id, check_name, severity, title, detail, detected_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, scan.ID, f.Check, string(f.Severity), f.Title, f.Detail, f.DetectedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to save finding %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// GetScan retrieves a scan and its findings by ID.
func (b *SQLiteBackend) GetScan(ctx context.Context, id string) (*ScanResult, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT id, target, status, started_at, finished_at FROM scans WHERE id = ?`, id)

	scan, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", id, err)
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT id, check_name, severity, title, detail, detected_at
		 FROM findings WHERE scan_id = ? ORDER BY detected_at`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load findings for scan %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var f Finding
		var severity string
		var detected int64
		if err := rows.Scan(&f.ID, &f.Check, &severity, &f.Title, &f.Detail, &detected); err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		f.ScanID = id
		f.Severity = Severity(severity)
		f.DetectedAt = time.Unix(0, detected)
		scan.Findings = append(scan.Findings, f)
	}
	return scan, rows.Err()
}

// ListScans returns scans newest first, findings omitted.
func (b *SQLiteBackend) ListScans(ctx context.Context, limit int) ([]*ScanResult, error) {
	query := `SELECT id, target, status, started_at, finished_at FROM scans ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []*ScanResult
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, scan)
	}
	return out, rows.Err()
}

// Cleanup deletes scans that started before olderThan; findings cascade.
func (b *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM scans WHERE started_at < ?`, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup scans: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the underlying database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (*ScanResult, error) {
	var scan ScanResult
	var status string
	var started, finished int64
	if err := r.Scan(&scan.ID, &scan.Target, &status, &started, &finished); err != nil {
		return nil, err
	}
	scan.Status = ScanStatus(status)
	scan.StartedAt = time.Unix(0, started)
	scan.FinishedAt = time.Unix(0, finished)
	return &scan, nil
}
