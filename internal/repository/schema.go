package repository

// Schema definitions for the Shrike database.
// Compatible with both SQLite and PostgreSQL.

const schemaReputation = `
CREATE TABLE IF NOT EXISTS reputation (
    number TEXT PRIMARY KEY,
    spam_score REAL NOT NULL DEFAULT 0,
    report_count BIGINT NOT NULL DEFAULT 0,
    category TEXT NOT NULL DEFAULT '',
    caller_name TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaContacts = `
CREATE TABLE IF NOT EXISTS contacts (
    number TEXT PRIMARY KEY,
    name TEXT NOT NULL
);
`

const schemaBlocklist = `
CREATE TABLE IF NOT EXISTS blocklist (
    number TEXT PRIMARY KEY,
    note TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
`

const schemaTrainingRecords = `
CREATE TABLE IF NOT EXISTS training_records (
    id TEXT PRIMARY KEY,
    number TEXT NOT NULL,
    kind INTEGER NOT NULL DEFAULT 0,
    labeled_spam INTEGER NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    features TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_training_records_created ON training_records(created_at);
CREATE INDEX IF NOT EXISTS idx_training_records_number ON training_records(number);
`

const schemaStats = `
CREATE TABLE IF NOT EXISTS stats (
    id INTEGER PRIMARY KEY,
    total_analyzed BIGINT NOT NULL DEFAULT 0,
    total_flagged_spam BIGINT NOT NULL DEFAULT 0
);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    expression TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    delta REAL NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaScreenings = `
CREATE TABLE IF NOT EXISTS screenings (
    id TEXT PRIMARY KEY,
    number TEXT NOT NULL,
    action TEXT NOT NULL,
    caller_label TEXT NOT NULL DEFAULT '',
    display_message TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    reasons TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_screenings_number ON screenings(number);
CREATE INDEX IF NOT EXISTS idx_screenings_created ON screenings(created_at);
`

// seedStats ensures the single counters row exists.
const seedStats = `
INSERT INTO stats (id, total_analyzed, total_flagged_spam)
VALUES (1, 0, 0)
ON CONFLICT (id) DO NOTHING;
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaReputation,
		schemaContacts,
		schemaBlocklist,
		schemaTrainingRecords,
		schemaStats,
		schemaRuleConfigs,
		schemaScreenings,
		seedStats,
	}
}
