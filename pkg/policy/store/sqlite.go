package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"fleetgrid/warden/pkg/policy/ast"
)

// SQLiteBackend implements Backend using the pure-Go SQLite driver. It is
// suitable for single-instance deployments where policies must survive a
// restart.
type SQLiteBackend struct {
	db *sql.DB
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite policy backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, &BackendError{Op: "open", Err: fmt.Errorf("db path cannot be empty")}
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &BackendError{Op: "open", Err: err}
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &SQLiteBackend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policy_versions (
		tenant_id TEXT NOT NULL,
		id TEXT NOT NULL,
		version INTEGER NOT NULL,
		name TEXT NOT NULL,
		domain TEXT NOT NULL,
		mode TEXT NOT NULL,
		polarity TEXT NOT NULL,
		severity TEXT NOT NULL,
		active BOOLEAN NOT NULL,
		conditions TEXT NOT NULL,
		actions TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (tenant_id, id, version)
	);
	CREATE INDEX IF NOT EXISTS idx_policy_versions_tenant ON policy_versions(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_policy_versions_domain ON policy_versions(tenant_id, domain);
	`
	if _, err := b.db.Exec(schema); err != nil {
		return &BackendError{Op: "init_schema", Err: err}
	}
	return nil
}

// SaveVersion appends one policy version row.
func (b *SQLiteBackend) SaveVersion(ctx context.Context, p *ast.Policy) error {
	conditions, err := json.Marshal(p.Conditions)
	if err != nil {
		return &BackendError{Op: "save_version", Err: err}
	}
	actions, err := json.Marshal(p.Actions)
	if err != nil {
		return &BackendError{Op: "save_version", Err: err}
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO policy_versions (
			tenant_id, id, version, name, domain, mode, polarity, severity,
			active, conditions, actions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.TenantID, p.ID, p.Version, p.Name, p.Domain,
		string(p.Mode), string(p.Polarity), string(p.Severity),
		p.Active, string(conditions), string(actions),
		p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return &BackendError{Op: "save_version", Err: err}
	}
	return nil
}

// SetActive flips the active flag on one stored version.
func (b *SQLiteBackend) SetActive(ctx context.Context, tenantID, policyID string, version int, active bool) error {
	res, err := b.db.ExecContext(ctx, `
		UPDATE policy_versions
		SET active = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND version = ?
	`, active, time.Now().UTC().Unix(), tenantID, policyID, version)
	if err != nil {
		return &BackendError{Op: "set_active", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &BackendError{Op: "set_active", Err: err}
	}
	if n == 0 {
		return &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	return nil
}

// LoadAll returns every stored version across all tenants.
func (b *SQLiteBackend) LoadAll(ctx context.Context) ([]*ast.Policy, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT tenant_id, id, version, name, domain, mode, polarity, severity,
		       active, conditions, actions, created_at, updated_at
		FROM policy_versions
		ORDER BY tenant_id, id, version
	`)
	if err != nil {
		return nil, &BackendError{Op: "load_all", Err: err}
	}
	defer rows.Close()

	var out []*ast.Policy
	for rows.Next() {
		var p ast.Policy
		var mode, polarity, severity string
		var conditions string
		var actions sql.NullString
		var createdAt, updatedAt int64

		err := rows.Scan(
			&p.TenantID, &p.ID, &p.Version, &p.Name, &p.Domain,
			&mode, &polarity, &severity,
			&p.Active, &conditions, &actions, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, &BackendError{Op: "load_all", Err: err}
		}

		p.Mode = ast.Mode(mode)
		p.Polarity = ast.Polarity(polarity)
		p.Severity = ast.Severity(severity)
		if err := json.Unmarshal([]byte(conditions), &p.Conditions); err != nil {
			return nil, &BackendError{Op: "load_all",
				Err: fmt.Errorf("corrupt condition tree for policy %s v%d: %w", p.ID, p.Version, err)}
		}
		if actions.Valid && actions.String != "" && actions.String != "null" {
			if err := json.Unmarshal([]byte(actions.String), &p.Actions); err != nil {
				return nil, &BackendError{Op: "load_all",
					Err: fmt.Errorf("corrupt actions for policy %s v%d: %w", p.ID, p.Version, err)}
			}
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, &BackendError{Op: "load_all", Err: err}
	}
	return out, nil
}

// Close closes the underlying database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
