package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/evaluator"
)

// SQLiteConfig contains configuration for the SQLite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/ledger.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements ledger.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite ledger backend. It initializes the
// database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "ledger.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, &ledger.StorageError{Op: "open", Err: err}
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite ledger storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return &ledger.StorageError{Op: "enable_wal", Err: err}
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return &ledger.StorageError{Op: "set_busy_timeout", Err: err}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return &ledger.StorageError{Op: "create_schema", Err: err}
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return &ledger.StorageError{Op: "insert_schema_version", Err: err}
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return &ledger.StorageError{Op: "get_schema_version", Err: err}
	}
	if version != SchemaVersion {
		return &ledger.StorageError{Op: "schema_version_mismatch",
			Err: fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version)}
	}

	return nil
}

// AppendVerdict persists a verdict record.
func (s *SQLiteStorage) AppendVerdict(ctx context.Context, v *ledger.Verdict) error {
	triggered, _ := json.Marshal(v.TriggeredConditions)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verdicts (
			id, tenant_id, policy_id, policy_version, event_id, entity_id, domain,
			satisfied, confidence, degraded, triggered_conditions, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID, v.TenantID, v.PolicyID, v.PolicyVersion, v.EventID, v.EntityID, v.Domain,
		v.Satisfied, v.Confidence, v.Degraded, string(triggered), v.EvaluatedAt,
	)
	if err != nil {
		return &ledger.StorageError{Op: "append_verdict", Err: err}
	}
	return nil
}

// AppendViolation persists a violation record.
func (s *SQLiteStorage) AppendViolation(ctx context.Context, v *ledger.Violation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO violations (
			id, tenant_id, verdict_id, policy_id, policy_version, event_id, entity_id, domain,
			severity, status, sequence, opened_at, acknowledged_at, resolved_at, resolution, resolved_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID, v.TenantID, v.VerdictID, v.PolicyID, v.PolicyVersion, v.EventID, v.EntityID, v.Domain,
		string(v.Severity), string(v.Status), v.Sequence, v.OpenedAt,
		v.AcknowledgedAt, v.ResolvedAt, nullIfEmpty(v.Resolution), nullIfEmpty(v.ResolvedBy),
	)
	if err != nil {
		return &ledger.StorageError{Op: "append_violation", Err: err}
	}
	return nil
}

// AppendExecution persists an execution record.
func (s *SQLiteStorage) AppendExecution(ctx context.Context, e *ledger.Execution) error {
	params, _ := json.Marshal(e.Action.Params)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (
			id, tenant_id, violation_id, policy_id, action_type, action_params,
			outcome, executed_by, executed_at, decided_by, decided_at, reason, sequence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.TenantID, e.ViolationID, e.PolicyID, e.Action.Type, string(params),
		string(e.Outcome), e.ExecutedBy, e.ExecutedAt,
		nullIfEmpty(e.DecidedBy), e.DecidedAt, nullIfEmpty(e.Reason), e.Sequence,
	)
	if err != nil {
		return &ledger.StorageError{Op: "append_execution", Err: err}
	}
	return nil
}

// GetViolation returns one violation scoped to tenantID.
func (s *SQLiteStorage) GetViolation(ctx context.Context, tenantID, id string) (*ledger.Violation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, verdict_id, policy_id, policy_version, event_id, entity_id, domain,
		       severity, status, sequence, opened_at, acknowledged_at, resolved_at, resolution, resolved_by
		FROM violations WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	v, err := scanViolation(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get_violation", Err: err}
	}
	return v, nil
}

// GetExecution returns one execution scoped to tenantID.
func (s *SQLiteStorage) GetExecution(ctx context.Context, tenantID, id string) (*ledger.Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, violation_id, policy_id, action_type, action_params,
		       outcome, executed_by, executed_at, decided_by, decided_at, reason, sequence
		FROM executions WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	e, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get_execution", Err: err}
	}
	return e, nil
}

// TransitionViolation moves a violation from expected to next status. The
// UPDATE is conditioned on the current status so a lost race affects zero
// rows and surfaces as ErrConcurrentModification.
func (s *SQLiteStorage) TransitionViolation(ctx context.Context, tenantID, id string, expected, next ledger.ViolationStatus, by, resolution string) error {
	if !ledger.ValidTransition(expected, next) {
		return &ledger.InvalidTransitionError{ViolationID: id, From: expected, To: next}
	}

	now := time.Now().UTC()
	var res sql.Result
	var err error

	switch next {
	case ledger.StatusAcknowledged:
		res, err = s.db.ExecContext(ctx, `
			UPDATE violations
			SET status = ?, acknowledged_at = ?, sequence = sequence + 1
			WHERE tenant_id = ? AND id = ? AND status = ?
		`, string(next), now, tenantID, id, string(expected))
	case ledger.StatusResolved:
		res, err = s.db.ExecContext(ctx, `
			UPDATE violations
			SET status = ?, resolved_at = ?, resolution = ?, resolved_by = ?, sequence = sequence + 1
			WHERE tenant_id = ? AND id = ? AND status = ?
		`, string(next), now, resolution, by, tenantID, id, string(expected))
	default:
		return &ledger.InvalidTransitionError{ViolationID: id, From: expected, To: next}
	}

	if err != nil {
		return &ledger.StorageError{Op: "transition_violation", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "transition_violation", Err: err}
	}
	if n == 0 {
		// Distinguish a missing row from a lost race.
		if _, err := s.GetViolation(ctx, tenantID, id); err != nil {
			return err
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

// DecideExecution settles an approval_pending execution in place.
func (s *SQLiteStorage) DecideExecution(ctx context.Context, tenantID, id string, outcome ledger.Outcome, decidedBy, reason string) error {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET outcome = ?, decided_by = ?, decided_at = ?, reason = ?, sequence = sequence + 1
		WHERE tenant_id = ? AND id = ? AND outcome = ?
	`, string(outcome), decidedBy, now, reason, tenantID, id, string(ledger.OutcomeApprovalPending))
	if err != nil {
		return &ledger.StorageError{Op: "decide_execution", Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "decide_execution", Err: err}
	}
	if n == 0 {
		if _, err := s.GetExecution(ctx, tenantID, id); err != nil {
			return err
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

// ListVerdicts returns verdicts matching the query, newest first.
func (s *SQLiteStorage) ListVerdicts(ctx context.Context, q *ledger.Query) ([]*ledger.Verdict, error) {
	where, args := buildFilter(q, "verdicts")

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, policy_id, policy_version, event_id, entity_id, domain,
		       satisfied, confidence, degraded, triggered_conditions, evaluated_at
		FROM verdicts `+where+` ORDER BY evaluated_at DESC`+limitClause(q), args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list_verdicts", Err: err}
	}
	defer rows.Close()

	var out []*ledger.Verdict
	for rows.Next() {
		var v ledger.Verdict
		var triggered sql.NullString
		if err := rows.Scan(
			&v.ID, &v.TenantID, &v.PolicyID, &v.PolicyVersion, &v.EventID, &v.EntityID, &v.Domain,
			&v.Satisfied, &v.Confidence, &v.Degraded, &triggered, &v.EvaluatedAt,
		); err != nil {
			return nil, &ledger.StorageError{Op: "list_verdicts", Err: err}
		}
		if triggered.Valid && triggered.String != "" && triggered.String != "null" {
			var tc []evaluator.TriggeredCondition
			if err := json.Unmarshal([]byte(triggered.String), &tc); err == nil {
				v.TriggeredConditions = tc
			}
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list_verdicts", Err: err}
	}
	return out, nil
}

// ListViolations returns violations matching the query, newest first.
func (s *SQLiteStorage) ListViolations(ctx context.Context, q *ledger.Query) ([]*ledger.Violation, error) {
	where, args := buildFilter(q, "violations")

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, verdict_id, policy_id, policy_version, event_id, entity_id, domain,
		       severity, status, sequence, opened_at, acknowledged_at, resolved_at, resolution, resolved_by
		FROM violations `+where+` ORDER BY opened_at DESC`+limitClause(q), args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list_violations", Err: err}
	}
	defer rows.Close()

	var out []*ledger.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "list_violations", Err: err}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list_violations", Err: err}
	}
	return out, nil
}

// ListExecutions returns executions matching the query, newest first.
func (s *SQLiteStorage) ListExecutions(ctx context.Context, q *ledger.Query) ([]*ledger.Execution, error) {
	where, args := buildFilter(q, "executions")

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, violation_id, policy_id, action_type, action_params,
		       outcome, executed_by, executed_at, decided_by, decided_at, reason, sequence
		FROM executions `+where+` ORDER BY executed_at DESC`+limitClause(q), args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "list_executions", Err: err}
	}
	defer rows.Close()

	var out []*ledger.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "list_executions", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StorageError{Op: "list_executions", Err: err}
	}
	return out, nil
}

// PruneBefore deletes records older than cutoff. Open violations and
// pending executions are never deleted regardless of age; resolved history
// and verdicts are fair game. Returns the number of rows removed.
func (s *SQLiteStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM verdicts WHERE evaluated_at < ?`, cutoff)
	if err != nil {
		return total, &ledger.StorageError{Op: "prune_verdicts", Err: err}
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = s.db.ExecContext(ctx, `
		DELETE FROM executions
		WHERE executed_at < ? AND outcome != ?
	`, cutoff, string(ledger.OutcomeApprovalPending))
	if err != nil {
		return total, &ledger.StorageError{Op: "prune_executions", Err: err}
	}
	n, _ = res.RowsAffected()
	total += n

	res, err = s.db.ExecContext(ctx, `
		DELETE FROM violations
		WHERE opened_at < ? AND status = ?
	`, cutoff, string(ledger.StatusResolved))
	if err != nil {
		return total, &ledger.StorageError{Op: "prune_violations", Err: err}
	}
	n, _ = res.RowsAffected()
	total += n

	return total, nil
}

// PruneVerdictsOverCount keeps the newest max verdicts and deletes the
// rest.
func (s *SQLiteStorage) PruneVerdictsOverCount(ctx context.Context, max int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM verdicts WHERE id NOT IN (
			SELECT id FROM verdicts ORDER BY evaluated_at DESC LIMIT ?
		)
	`, max)
	if err != nil {
		return 0, &ledger.StorageError{Op: "prune_verdicts_count", Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanViolation(r rowScanner) (*ledger.Violation, error) {
	var v ledger.Violation
	var severity, status string
	var ackAt, resAt sql.NullTime
	var resolution, resolvedBy sql.NullString

	err := r.Scan(
		&v.ID, &v.TenantID, &v.VerdictID, &v.PolicyID, &v.PolicyVersion,
		&v.EventID, &v.EntityID, &v.Domain,
		&severity, &status, &v.Sequence, &v.OpenedAt,
		&ackAt, &resAt, &resolution, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	v.Severity = ast.Severity(severity)
	v.Status = ledger.ViolationStatus(status)
	if ackAt.Valid {
		t := ackAt.Time
		v.AcknowledgedAt = &t
	}
	if resAt.Valid {
		t := resAt.Time
		v.ResolvedAt = &t
	}
	v.Resolution = resolution.String
	v.ResolvedBy = resolvedBy.String
	return &v, nil
}

func scanExecution(r rowScanner) (*ledger.Execution, error) {
	var e ledger.Execution
	var params, decidedBy, reason sql.NullString
	var outcome string
	var decidedAt sql.NullTime

	err := r.Scan(
		&e.ID, &e.TenantID, &e.ViolationID, &e.PolicyID, &e.Action.Type, &params,
		&outcome, &e.ExecutedBy, &e.ExecutedAt, &decidedBy, &decidedAt, &reason, &e.Sequence,
	)
	if err != nil {
		return nil, err
	}

	e.Outcome = ledger.Outcome(outcome)
	if params.Valid && params.String != "" && params.String != "null" {
		var p map[string]any
		if err := json.Unmarshal([]byte(params.String), &p); err == nil {
			e.Action.Params = p
		}
	}
	e.DecidedBy = decidedBy.String
	if decidedAt.Valid {
		t := decidedAt.Time
		e.DecidedAt = &t
	}
	e.Reason = reason.String
	return &e, nil
}

// buildFilter translates a ledger.Query into a WHERE clause for the given
// table. Each table carries a different time column and a different subset
// of filterable columns.
func buildFilter(q *ledger.Query, table string) (string, []any) {
	where := "WHERE tenant_id = ?"
	args := []any{q.TenantID}

	timeColumn := map[string]string{
		"verdicts":   "evaluated_at",
		"violations": "opened_at",
		"executions": "executed_at",
	}[table]

	if q.PolicyID != "" {
		where += " AND policy_id = ?"
		args = append(args, q.PolicyID)
	}
	if table != "executions" {
		if q.EntityID != "" {
			where += " AND entity_id = ?"
			args = append(args, q.EntityID)
		}
		if q.Domain != "" {
			where += " AND domain = ?"
			args = append(args, q.Domain)
		}
	}
	if table == "executions" && q.ViolationID != "" {
		where += " AND violation_id = ?"
		args = append(args, q.ViolationID)
	}
	if table == "violations" {
		if q.Status != "" {
			where += " AND status = ?"
			args = append(args, string(q.Status))
		}
		if q.Severity != "" {
			where += " AND severity = ?"
			args = append(args, string(q.Severity))
		}
	}
	if q.Start != nil {
		where += " AND " + timeColumn + " >= ?"
		args = append(args, *q.Start)
	}
	if q.End != nil {
		where += " AND " + timeColumn + " <= ?"
		args = append(args, *q.End)
	}
	return where, args
}

func limitClause(q *ledger.Query) string {
	if q.Limit <= 0 {
		return ""
	}
	clause := fmt.Sprintf(" LIMIT %d", q.Limit)
	if q.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", q.Offset)
	}
	return clause
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
