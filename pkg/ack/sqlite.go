package ack

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists acknowledgments with the pure-Go SQLite driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the acknowledgment database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("db path cannot be empty")}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS acknowledgments (
		tenant_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		policy_version INTEGER NOT NULL,
		subject_id TEXT NOT NULL,
		signed_at INTEGER NOT NULL,
		signature_ref TEXT NOT NULL,
		PRIMARY KEY (tenant_id, policy_id, policy_version, subject_id)
	);
	CREATE INDEX IF NOT EXISTS idx_acks_subject ON acknowledgments(tenant_id, subject_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return &StoreError{Op: "init_schema", Err: err}
	}
	return nil
}

// Record inserts the acknowledgment unless the key already exists, then
// returns the stored row. ON CONFLICT DO NOTHING keeps the first write
// authoritative under concurrent duplicates.
func (s *SQLiteStore) Record(ctx context.Context, a *Acknowledgment) (*Acknowledgment, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acknowledgments (tenant_id, policy_id, policy_version, subject_id, signed_at, signature_ref)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, policy_id, policy_version, subject_id) DO NOTHING
	`, a.TenantID, a.PolicyID, a.PolicyVersion, a.SubjectID, a.SignedAt.Unix(), a.SignatureRef)
	if err != nil {
		return nil, &StoreError{Op: "record", Err: err}
	}

	return s.Get(ctx, a.TenantID, a.PolicyID, a.PolicyVersion, a.SubjectID)
}

// Get returns the acknowledgment for the key, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, tenantID, policyID string, version int, subjectID string) (*Acknowledgment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, policy_id, policy_version, subject_id, signed_at, signature_ref
		FROM acknowledgments
		WHERE tenant_id = ? AND policy_id = ? AND policy_version = ? AND subject_id = ?
	`, tenantID, policyID, version, subjectID)

	a, err := scanAck(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	return a, nil
}

// ListBySubject returns all acknowledgments a subject has signed.
func (s *SQLiteStore) ListBySubject(ctx context.Context, tenantID, subjectID string) ([]*Acknowledgment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, policy_id, policy_version, subject_id, signed_at, signature_ref
		FROM acknowledgments
		WHERE tenant_id = ? AND subject_id = ?
		ORDER BY signed_at DESC
	`, tenantID, subjectID)
	if err != nil {
		return nil, &StoreError{Op: "list_by_subject", Err: err}
	}
	defer rows.Close()

	var out []*Acknowledgment
	for rows.Next() {
		a, err := scanAck(rows)
		if err != nil {
			return nil, &StoreError{Op: "list_by_subject", Err: err}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list_by_subject", Err: err}
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanAck(r interface{ Scan(...any) error }) (*Acknowledgment, error) {
	var a Acknowledgment
	var signedAt int64
	if err := r.Scan(&a.TenantID, &a.PolicyID, &a.PolicyVersion, &a.SubjectID, &signedAt, &a.SignatureRef); err != nil {
		return nil, err
	}
	a.SignedAt = time.Unix(signedAt, 0).UTC()
	return &a, nil
}
