package store

import (
	"database/sql"
	"time"
)

// =============================================================================
// Event Operations
// =============================================================================

const eventColumns = "id, spartan_id, category, name, race_id, start_date, venue_name"

func scanEvent(row *sql.Row) (*Event, error) {
	event := &Event{}
	var startDate string

	err := row.Scan(
		&event.ID,
		&event.SpartanID,
		&event.Category,
		&event.Name,
		&event.RaceID,
		&startDate,
		&event.VenueName,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	event.StartDate, err = time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func findEventByNaturalKey(q querier, spartanID int64) (*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE spartan_id = ?
	`
	return scanEvent(q.QueryRow(query, spartanID))
}

func insertEvent(q querier, event *Event) error {
	query := `
		INSERT INTO events (spartan_id, category, name, race_id, start_date, venue_name)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := q.Exec(query,
		event.SpartanID,
		event.Category,
		event.Name,
		event.RaceID,
		event.StartDate.Format(dateLayout),
		event.VenueName,
	)
	if err != nil {
		return err
	}

	event.ID, err = result.LastInsertId()
	return err
}

func updateEvent(q querier, event *Event) error {
	query := `
		UPDATE events
		SET category = ?, name = ?, race_id = ?, start_date = ?, venue_name = ?
		WHERE spartan_id = ?
	`

	result, err := q.Exec(query,
		event.Category,
		event.Name,
		event.RaceID,
		event.StartDate.Format(dateLayout),
		event.VenueName,
		event.SpartanID,
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

// FindEventByNaturalKey retrieves an event by its upstream-assigned id
func (db *DB) FindEventByNaturalKey(spartanID int64) (*Event, error) {
	return findEventByNaturalKey(db, spartanID)
}

// FindEventByNaturalKey retrieves an event by its upstream-assigned id within a transaction
func (tx *Tx) FindEventByNaturalKey(spartanID int64) (*Event, error) {
	return findEventByNaturalKey(tx, spartanID)
}

// InsertEvent inserts a new event and fills in its surrogate id
func (db *DB) InsertEvent(event *Event) error {
	return insertEvent(db, event)
}

// InsertEvent inserts a new event within a transaction
func (tx *Tx) InsertEvent(event *Event) error {
	return insertEvent(tx, event)
}

// UpdateEvent overwrites an existing event, matched by natural key
func (db *DB) UpdateEvent(event *Event) error {
	return updateEvent(db, event)
}

// UpdateEvent overwrites an existing event within a transaction
func (tx *Tx) UpdateEvent(event *Event) error {
	return updateEvent(tx, event)
}

// EventsForRace retrieves all events whose race_id references the given
// race natural key. The reference is advisory, so this can legitimately
// return events for a race we have never stored.
func (db *DB) EventsForRace(raceNaturalKey int64) ([]Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE race_id = ?
		ORDER BY start_date, spartan_id
	`

	rows, err := db.Query(query, raceNaturalKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var startDate string
		err := rows.Scan(
			&event.ID,
			&event.SpartanID,
			&event.Category,
			&event.Name,
			&event.RaceID,
			&startDate,
			&event.VenueName,
		)
		if err != nil {
			return nil, err
		}
		if event.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		events = []Event{}
	}

	return events, nil
}
