package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgadling/hyperion/internal/store"
)

// DiffReport describes every field that changed on one stored entity
// during a reconciliation pass. The surrogate row id is never part of a
// diff; only upstream-visible fields are compared.
type DiffReport struct {
	Entity     string
	NaturalKey int64
	Changes    []string
}

// Empty reports whether nothing changed
func (r DiffReport) Empty() bool {
	return len(r.Changes) == 0
}

// String renders the report one line per changed field
func (r DiffReport) String() string {
	return strings.Join(r.Changes, "\n")
}

func (r *DiffReport) compare(field, old, new string) {
	if old == new {
		return
	}
	r.Changes = append(r.Changes,
		fmt.Sprintf("%s(naturalKey=%d).%s: %s -> %s", r.Entity, r.NaturalKey, field, old, new))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

const dateLayout = "2006-01-02"

func diffRaces(old, new *store.Race) DiffReport {
	report := DiffReport{Entity: "Race", NaturalKey: old.SpartanID}
	report.compare("name", old.Name, new.Name)
	report.compare("start_date", old.StartDate.Format(dateLayout), new.StartDate.Format(dateLayout))
	report.compare("venue_name", old.VenueName, new.VenueName)
	report.compare("country", old.Country, new.Country)
	report.compare("region", old.Region, new.Region)
	report.compare("latitude", formatFloat(old.Latitude), formatFloat(new.Latitude))
	report.compare("longitude", formatFloat(old.Longitude), formatFloat(new.Longitude))
	return report
}

func diffEvents(old, new *store.Event) DiffReport {
	report := DiffReport{Entity: "Event", NaturalKey: old.SpartanID}
	report.compare("category", old.Category, new.Category)
	report.compare("name", old.Name, new.Name)
	report.compare("race_id", strconv.FormatInt(old.RaceID, 10), strconv.FormatInt(new.RaceID, 10))
	report.compare("start_date", old.StartDate.Format(dateLayout), new.StartDate.Format(dateLayout))
	report.compare("venue_name", old.VenueName, new.VenueName)
	return report
}
