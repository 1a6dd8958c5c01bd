package gameplay

import (
	"context"
	"database/sql"
	"fmt"
)

// SetupQuery creates every table and index of the per-user gameplay database.
// Each statement is guarded with IF NOT EXISTS so it can run on every open.
const SetupQuery = `
CREATE TABLE IF NOT EXISTS leaderboard (
	id INTEGER PRIMARY KEY NOT NULL,
	key TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	sort_method TEXT CHECK (sort_method IN ('SORT_METHOD_ASCENDING', 'SORT_METHOD_DESCENDING')) NOT NULL,
	display_type TEXT CHECK (display_type IN ('DISPLAY_TYPE_NUMERIC', 'DISPLAY_TYPE_TIME_SECONDS', 'DISPLAY_TYPE_TIME_MILLISECONDS')) NOT NULL,
	score INTEGER NOT NULL DEFAULT 0,
	rank INTEGER NOT NULL DEFAULT 0,
	force_update INTEGER CHECK (force_update IN (0, 1)) NOT NULL DEFAULT 0,
	changed INTEGER CHECK (changed IN (0, 1)) NOT NULL,
	entry_total_count INTEGER NOT NULL DEFAULT 0,
	details TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS achievement (
	id INTEGER PRIMARY KEY NOT NULL,
	key TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	visible_while_locked INTEGER CHECK (visible_while_locked IN (0, 1)) NOT NULL,
	unlock_time TEXT,
	image_url_locked TEXT NOT NULL,
	image_url_unlocked TEXT NOT NULL,
	changed INTEGER CHECK (changed IN (0, 1)) NOT NULL,
	rarity REAL NOT NULL DEFAULT 0.0,
	rarity_level_description TEXT NOT NULL DEFAULT '',
	rarity_level_slug TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS statistic (
	id INTEGER PRIMARY KEY NOT NULL,
	key TEXT UNIQUE NOT NULL,
	type TEXT CHECK (type IN ('INT', 'FLOAT', 'AVGRATE')) NOT NULL,
	increment_only INTEGER CHECK (increment_only IN (0, 1)) NOT NULL,
	changed INTEGER CHECK (changed IN (0, 1)) NOT NULL
);

CREATE INDEX IF NOT EXISTS is_leaderboard_score_changed ON leaderboard(changed);
CREATE INDEX IF NOT EXISTS is_achievement_changed ON achievement(changed);
CREATE INDEX IF NOT EXISTS is_statistic_changed ON statistic(changed);

CREATE TABLE IF NOT EXISTS game_info (
	time_played INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS int_statistic (
	id INTEGER REFERENCES statistic(id) NOT NULL,
	value INTEGER NOT NULL DEFAULT 0,
	default_value INTEGER NOT NULL DEFAULT 0,
	min_value INTEGER,
	max_value INTEGER,
	max_change INTEGER
);

CREATE TABLE IF NOT EXISTS float_statistic (
	id INTEGER REFERENCES statistic(id) NOT NULL,
	value REAL NOT NULL DEFAULT 0,
	default_value REAL NOT NULL DEFAULT 0,
	min_value REAL,
	max_value REAL,
	max_change REAL,
	"window" REAL DEFAULT NULL
);

CREATE TABLE IF NOT EXISTS database_info (
	key TEXT PRIMARY KEY NOT NULL,
	value TEXT NOT NULL
);
`

// Setup creates the gameplay tables if they don't exist. Existing data is left untouched.
func Setup(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, SetupQuery); err != nil {
		return storageErr("setup schema", fmt.Errorf("failed to create tables: %w", err))
	}
	return nil
}
