package store

import "time"

// Race represents one race weekend as the upstream site describes it.
// SpartanID is the upstream-assigned natural key; ID is our surrogate row
// id and never leaves the store.
type Race struct {
	ID        int64
	SpartanID int64
	Name      string
	StartDate time.Time
	VenueName string
	Country   string
	Region    string
	Latitude  float64
	Longitude float64
}

// Event represents a single category run within a race (sprint, beast,
// kids heat, ...). RaceID holds the parent race's natural key. The
// reference is advisory only: upstream routinely lists events whose race
// falls outside the fetched window, so there is deliberately no foreign
// key constraint behind it.
type Event struct {
	ID        int64
	SpartanID int64
	Category  string
	Name      string
	RaceID    int64
	StartDate time.Time
	VenueName string
}

const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS races (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	spartan_id INTEGER NOT NULL UNIQUE,
	name TEXT NOT NULL,
	start_date TEXT NOT NULL,
	venue_name TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT 'TBD',
	region TEXT NOT NULL DEFAULT 'TBD',
	latitude REAL NOT NULL DEFAULT 0.0,
	longitude REAL NOT NULL DEFAULT 0.0
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	spartan_id INTEGER NOT NULL UNIQUE,
	category TEXT NOT NULL,
	name TEXT NOT NULL,
	race_id INTEGER NOT NULL,
	start_date TEXT NOT NULL,
	venue_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_race_id ON events(race_id);
CREATE INDEX IF NOT EXISTS idx_races_start_date ON races(start_date);
`

// dateLayout is how calendar dates are stored; upstream only ever gives us
// whole days.
const dateLayout = "2006-01-02"

// initSchema creates the tables if needed and stamps the schema version
// into user_version so a future migration has something to compare against.
func (db *DB) initSchema() error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		return err
	}

	if current < schemaVersion {
		if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
			return err
		}
	}
	return nil
}
