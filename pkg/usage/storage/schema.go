package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the usage database schema.
const Schema = `
-- Usage records table
CREATE TABLE IF NOT EXISTS usage_records (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,
    request_id TEXT NOT NULL,

    -- Request shape
    dialect TEXT NOT NULL,
    model TEXT NOT NULL,
    stream BOOLEAN NOT NULL,

    -- Outcome
    status TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,

    -- Token consumption
    input_tokens INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    cache_write_tokens INTEGER NOT NULL,
    cache_read_tokens INTEGER NOT NULL,
    total_cents REAL NOT NULL,

    -- Error info (NULL on success)
    error_code TEXT,
    error_message TEXT,
    error_detail TEXT
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_usage_request_id ON usage_records(request_id);
CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_records(model);
CREATE INDEX IF NOT EXISTS idx_usage_dialect ON usage_records(dialect);
CREATE INDEX IF NOT EXISTS idx_usage_status ON usage_records(status);
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
