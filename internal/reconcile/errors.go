package reconcile

import "fmt"

// UnknownTaxonomyError reports an upstream category slug that has no entry
// in the replacement table and is not in the ignore set. It aborts the
// whole reconciliation batch: an unmapped slug means upstream changed
// their taxonomy and the table needs a human update.
type UnknownTaxonomyError struct {
	Category string
	EventID  int64
}

func (e *UnknownTaxonomyError) Error() string {
	return fmt.Sprintf("unknown event category %q on event %d, taxonomy table needs updating", e.Category, e.EventID)
}

// MalformedRecordError reports a fetched record missing a required field.
// These are skipped one record at a time; the batch continues.
type MalformedRecordError struct {
	Entity string
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: field %s: %s", e.Entity, e.Field, e.Reason)
}
