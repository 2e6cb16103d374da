package activities

// Schema contains the SQL statements for the activity keyspaces.
// The primary table is partitioned by (user_id, date) and the source
// index table enforces at most one local activity per non-manual
// (provider, external id) pair.
const Schema = `
CREATE TABLE IF NOT EXISTS activity (
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,  -- ISO YYYY-MM-DD, lexicographic order == chronological order
    id TEXT NOT NULL,
    status TEXT NOT NULL,
    plan JSONB,
    performance JSONB,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,

    PRIMARY KEY (user_id, date, id)
);

CREATE TABLE IF NOT EXISTS activity_source_idx (
    user_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    external_id TEXT NOT NULL,

    -- primary key tuple of the referenced activity
    activity_date TEXT NOT NULL,
    activity_id TEXT NOT NULL,

    PRIMARY KEY (user_id, provider, external_id)
);

CREATE INDEX IF NOT EXISTS idx_activity_user_date ON activity(user_id, date);
CREATE INDEX IF NOT EXISTS idx_activity_source_activity ON activity_source_idx(user_id, activity_date, activity_id);
`
