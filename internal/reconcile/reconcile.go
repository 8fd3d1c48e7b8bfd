package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dgadling/hyperion/internal/spartan"
	"github.com/dgadling/hyperion/internal/store"
)

// Engine merges freshly fetched race payloads into the record store.
// Each Reconcile call is one batch inside one transaction: malformed
// records are skipped individually, but an unknown category rolls the
// whole batch back.
type Engine struct {
	db     *store.DB
	logger *slog.Logger

	// now is swappable for tests; events without a start date default to
	// the current day.
	now func() time.Time
}

// New creates a reconciliation engine over the given store
func New(db *store.DB, logger *slog.Logger) *Engine {
	return &Engine{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Reconcile merges the fetched payloads into the store and returns one
// DiffReport per entity that already existed and changed. Inserts are
// logged but produce no report.
func (e *Engine) Reconcile(races []spartan.RacePayload) ([]DiffReport, error) {
	batchID := uuid.NewString()
	logger := e.logger.With("batch_id", batchID)
	logger.Info("reconciling fetched races", "count", len(races))

	var reports []DiffReport
	err := e.db.WithTransaction(func(tx *store.Tx) error {
		for _, payload := range races {
			race, err := buildRace(payload)
			if err != nil {
				// One bad record never sinks the batch. Log enough of the
				// payload to diagnose without re-fetching.
				logger.Warn("skipping malformed race record",
					"error", err,
					"race_id", payload.ID.String(),
					"event_name", payload.EventName,
					"start_date", payload.StartDate)
				continue
			}

			report, err := e.mergeRace(tx, logger, race)
			if err != nil {
				return err
			}
			if !report.Empty() {
				reports = append(reports, report)
			}

			for _, sub := range payload.Subevents {
				event, err := e.buildEvent(sub)
				if err != nil {
					var unknown *UnknownTaxonomyError
					if errors.As(err, &unknown) {
						// Taxonomy drift has to surface loudly and must not
						// leave a half-merged batch behind.
						return err
					}
					logger.Warn("skipping malformed event record",
						"error", err,
						"event_id", sub.ID.String(),
						"event_name", sub.EventName,
						"parent_race_id", payload.ID.String(),
						"parent_race_name", payload.EventName)
					continue
				}
				if event == nil {
					// Ignored category (passes, bundles, ...)
					logger.Debug("ignoring event category",
						"event_id", sub.ID.String(), "category", sub.Category.Slug())
					continue
				}

				report, err := e.mergeEvent(tx, logger, event)
				if err != nil {
					return err
				}
				if !report.Empty() {
					reports = append(reports, report)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("reconciliation complete", "changed", len(reports))
	return reports, nil
}

func (e *Engine) mergeRace(tx *store.Tx, logger *slog.Logger, race *store.Race) (DiffReport, error) {
	existing, err := tx.FindRaceByNaturalKey(race.SpartanID)
	if errors.Is(err, store.ErrNotFound) {
		if err := tx.InsertRace(race); err != nil {
			return DiffReport{}, fmt.Errorf("inserting race %d: %w", race.SpartanID, err)
		}
		logger.Info("saved new race", "spartan_id", race.SpartanID, "name", race.Name)
		return DiffReport{}, nil
	}
	if err != nil {
		return DiffReport{}, fmt.Errorf("looking up race %d: %w", race.SpartanID, err)
	}

	report := diffRaces(existing, race)
	if report.Empty() {
		return report, nil
	}

	logger.Info("race changed", "spartan_id", race.SpartanID, "diff", report.String())
	race.ID = existing.ID
	if err := tx.UpdateRace(race); err != nil {
		return DiffReport{}, fmt.Errorf("updating race %d: %w", race.SpartanID, err)
	}
	return report, nil
}

func (e *Engine) mergeEvent(tx *store.Tx, logger *slog.Logger, event *store.Event) (DiffReport, error) {
	existing, err := tx.FindEventByNaturalKey(event.SpartanID)
	if errors.Is(err, store.ErrNotFound) {
		if err := tx.InsertEvent(event); err != nil {
			return DiffReport{}, fmt.Errorf("inserting event %d: %w", event.SpartanID, err)
		}
		logger.Info("saved new event", "spartan_id", event.SpartanID, "name", event.Name)
		return DiffReport{}, nil
	}
	if err != nil {
		return DiffReport{}, fmt.Errorf("looking up event %d: %w", event.SpartanID, err)
	}

	report := diffEvents(existing, event)
	if report.Empty() {
		return report, nil
	}

	logger.Info("event changed", "spartan_id", event.SpartanID, "diff", report.String())
	event.ID = existing.ID
	if err := tx.UpdateEvent(event); err != nil {
		return DiffReport{}, fmt.Errorf("updating event %d: %w", event.SpartanID, err)
	}
	return report, nil
}

// buildRace normalizes one race payload. Missing required fields produce a
// MalformedRecordError; optional location fields get documented fallbacks.
func buildRace(payload spartan.RacePayload) (*store.Race, error) {
	id, err := requiredID("race", "id", payload.ID)
	if err != nil {
		return nil, err
	}
	if payload.EventName == "" {
		return nil, &MalformedRecordError{Entity: "race", Field: "event_name", Reason: "missing"}
	}

	startDate, err := time.Parse(dateLayout, payload.StartDate)
	if err != nil {
		return nil, &MalformedRecordError{
			Entity: "race",
			Field:  "start_date",
			Reason: fmt.Sprintf("unparseable value %q", payload.StartDate),
		}
	}

	race := &store.Race{
		SpartanID: id,
		Name:      payload.EventName,
		StartDate: startDate,
		VenueName: payload.Venue.Name,
		Country:   payload.Country,
		Region:    payload.Region,
	}

	if race.Country == "" {
		race.Country = "TBD"
	}
	if race.Region == "" {
		race.Region = "TBD"
	}
	if payload.Latitude != nil {
		race.Latitude = *payload.Latitude
	}
	if payload.Longitude != nil {
		race.Longitude = *payload.Longitude
	}

	return race, nil
}

// buildEvent normalizes one event payload. A nil, nil return means the
// event's category is on the ignore list and the event should be dropped.
func (e *Engine) buildEvent(payload spartan.EventPayload) (*store.Event, error) {
	id, err := requiredID("event", "id", payload.ID)
	if err != nil {
		return nil, err
	}

	slug := payload.Category.Slug()
	if slug == "" {
		return nil, &MalformedRecordError{Entity: "event", Field: "category", Reason: "missing"}
	}
	tag, ignored, ok := mapCategory(slug)
	if ignored {
		return nil, nil
	}
	if !ok {
		return nil, &UnknownTaxonomyError{Category: slug, EventID: id}
	}

	if payload.EventName == "" {
		return nil, &MalformedRecordError{Entity: "event", Field: "event_name", Reason: "missing"}
	}

	raceID, err := requiredID("event", "race_id", payload.RaceID)
	if err != nil {
		return nil, err
	}

	// Upstream sometimes omits the event date entirely; default to today
	// rather than dropping the event.
	startDate := e.now()
	if payload.StartDate != "" {
		startDate, err = time.Parse(dateLayout, payload.StartDate)
		if err != nil {
			return nil, &MalformedRecordError{
				Entity: "event",
				Field:  "start_date",
				Reason: fmt.Sprintf("unparseable value %q", payload.StartDate),
			}
		}
	}

	return &store.Event{
		SpartanID: id,
		Category:  tag,
		Name:      payload.EventName,
		RaceID:    raceID,
		StartDate: startDate,
		VenueName: payload.Venue.Name,
	}, nil
}

func requiredID(entity, field string, raw json.Number) (int64, error) {
	s := raw.String()
	if s == "" {
		return 0, &MalformedRecordError{Entity: entity, Field: field, Reason: "missing"}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &MalformedRecordError{Entity: entity, Field: field, Reason: fmt.Sprintf("unparseable value %q", s)}
	}
	return id, nil
}
