package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "observation history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS air_readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_date TEXT NOT NULL,
    station TEXT NOT NULL,
    index_value INTEGER NOT NULL CHECK(index_value BETWEEN 0 AND 300),
    status TEXT NOT NULL,
    origin TEXT NOT NULL CHECK(origin IN ('real', 'synthetic')),
    lat REAL,
    lon REAL,
    observed_at TEXT,
    recorded_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS water_levels (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_date TEXT NOT NULL,
    elevation REAL NOT NULL,
    origin TEXT NOT NULL CHECK(origin IN ('real', 'synthetic')),
    evidence TEXT,
    observed_at TEXT,
    recorded_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS briefings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    briefing_date TEXT UNIQUE NOT NULL,
    headline TEXT NOT NULL,
    body_markdown TEXT NOT NULL,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_air_readings_date ON air_readings(recorded_date);
CREATE INDEX IF NOT EXISTS idx_water_levels_date ON water_levels(recorded_date);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "run reports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    dataset TEXT NOT NULL,
    outcome TEXT NOT NULL CHECK(outcome IN ('ok', 'degraded', 'error')),
    item_count INTEGER DEFAULT 0,
    error TEXT,
    run_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_run_reports_dataset ON run_reports(dataset, run_at);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
