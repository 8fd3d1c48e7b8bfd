package store

import (
	"database/sql"
	"time"
)

// querier is satisfied by both DB and Tx so every operation can run inside
// or outside a transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// Race Operations
// =============================================================================

const raceColumns = "id, spartan_id, name, start_date, venue_name, country, region, latitude, longitude"

func scanRace(row *sql.Row) (*Race, error) {
	race := &Race{}
	var startDate string

	err := row.Scan(
		&race.ID,
		&race.SpartanID,
		&race.Name,
		&startDate,
		&race.VenueName,
		&race.Country,
		&race.Region,
		&race.Latitude,
		&race.Longitude,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	race.StartDate, err = time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, err
	}
	return race, nil
}

func findRaceByNaturalKey(q querier, spartanID int64) (*Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		WHERE spartan_id = ?
	`
	return scanRace(q.QueryRow(query, spartanID))
}

func insertRace(q querier, race *Race) error {
	query := `
		INSERT INTO races (spartan_id, name, start_date, venue_name, country, region, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.Exec(query,
		race.SpartanID,
		race.Name,
		race.StartDate.Format(dateLayout),
		race.VenueName,
		race.Country,
		race.Region,
		race.Latitude,
		race.Longitude,
	)
	if err != nil {
		return err
	}

	race.ID, err = result.LastInsertId()
	return err
}

// updateRace overwrites every mutable field of the row that matches the
// natural key. The surrogate id never changes.
func updateRace(q querier, race *Race) error {
	query := `
		UPDATE races
		SET name = ?, start_date = ?, venue_name = ?, country = ?, region = ?, latitude = ?, longitude = ?
		WHERE spartan_id = ?
	`

	result, err := q.Exec(query,
		race.Name,
		race.StartDate.Format(dateLayout),
		race.VenueName,
		race.Country,
		race.Region,
		race.Latitude,
		race.Longitude,
		race.SpartanID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindRaceByNaturalKey retrieves a race by its upstream-assigned id
func (db *DB) FindRaceByNaturalKey(spartanID int64) (*Race, error) {
	return findRaceByNaturalKey(db, spartanID)
}

// FindRaceByNaturalKey retrieves a race by its upstream-assigned id within a transaction
func (tx *Tx) FindRaceByNaturalKey(spartanID int64) (*Race, error) {
	return findRaceByNaturalKey(tx, spartanID)
}

// InsertRace inserts a new race and fills in its surrogate id
func (db *DB) InsertRace(race *Race) error {
	return insertRace(db, race)
}

// InsertRace inserts a new race within a transaction
func (tx *Tx) InsertRace(race *Race) error {
	return insertRace(tx, race)
}

// UpdateRace overwrites an existing race, matched by natural key
func (db *DB) UpdateRace(race *Race) error {
	return updateRace(db, race)
}

// UpdateRace overwrites an existing race within a transaction
func (tx *Tx) UpdateRace(race *Race) error {
	return updateRace(tx, race)
}

// AllRaces retrieves all races ordered by start date
func (db *DB) AllRaces() ([]Race, error) {
	return db.racesWhere("", nil)
}

// RacesStartingOnOrAfter retrieves races whose start date is on or after
// the given day, ordered by start date
func (db *DB) RacesStartingOnOrAfter(day time.Time) ([]Race, error) {
	return db.racesWhere("WHERE start_date >= ?", []any{day.Format(dateLayout)})
}

func (db *DB) racesWhere(where string, args []any) ([]Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		` + where + `
		ORDER BY start_date, spartan_id
	`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []Race
	for rows.Next() {
		var race Race
		var startDate string
		err := rows.Scan(
			&race.ID,
			&race.SpartanID,
			&race.Name,
			&startDate,
			&race.VenueName,
			&race.Country,
			&race.Region,
			&race.Latitude,
			&race.Longitude,
		)
		if err != nil {
			return nil, err
		}
		if race.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
			return nil, err
		}
		races = append(races, race)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	// Return empty slice instead of nil
	if races == nil {
		races = []Race{}
	}

	return races, nil
}
