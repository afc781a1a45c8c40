package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the ledger database schema.
const Schema = `
-- Verdicts: immutable evaluation results
CREATE TABLE IF NOT EXISTS verdicts (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    policy_id TEXT NOT NULL,
    policy_version INTEGER NOT NULL,
    event_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    domain TEXT NOT NULL,
    satisfied BOOLEAN NOT NULL,
    confidence REAL NOT NULL,
    degraded BOOLEAN NOT NULL DEFAULT 0,
    triggered_conditions TEXT,
    evaluated_at TIMESTAMP NOT NULL
);

-- Violations: one mutable column (status), guarded by sequence
CREATE TABLE IF NOT EXISTS violations (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    verdict_id TEXT NOT NULL,
    policy_id TEXT NOT NULL,
    policy_version INTEGER NOT NULL,
    event_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    domain TEXT NOT NULL,
    severity TEXT NOT NULL,
    status TEXT NOT NULL,
    sequence INTEGER NOT NULL DEFAULT 0,
    opened_at TIMESTAMP NOT NULL,
    acknowledged_at TIMESTAMP,
    resolved_at TIMESTAMP,
    resolution TEXT,
    resolved_by TEXT
);

-- Executions: settled in place when a pending approval is decided
CREATE TABLE IF NOT EXISTS executions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    violation_id TEXT NOT NULL,
    policy_id TEXT NOT NULL,
    action_type TEXT NOT NULL,
    action_params TEXT,
    outcome TEXT NOT NULL,
    executed_by TEXT NOT NULL,
    executed_at TIMESTAMP NOT NULL,
    decided_by TEXT,
    decided_at TIMESTAMP,
    reason TEXT,
    sequence INTEGER NOT NULL DEFAULT 0
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_verdicts_tenant_time ON verdicts(tenant_id, evaluated_at);
CREATE INDEX IF NOT EXISTS idx_verdicts_policy ON verdicts(tenant_id, policy_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_entity ON verdicts(tenant_id, entity_id);
CREATE INDEX IF NOT EXISTS idx_violations_tenant_time ON violations(tenant_id, opened_at);
CREATE INDEX IF NOT EXISTS idx_violations_status ON violations(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_violations_policy ON violations(tenant_id, policy_id);
CREATE INDEX IF NOT EXISTS idx_violations_entity ON violations(tenant_id, entity_id);
CREATE INDEX IF NOT EXISTS idx_executions_tenant_time ON executions(tenant_id, executed_at);
CREATE INDEX IF NOT EXISTS idx_executions_violation ON executions(tenant_id, violation_id);
CREATE INDEX IF NOT EXISTS idx_executions_outcome ON executions(tenant_id, outcome);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
