package reconcile

import "sort"

// categoryReplacements maps upstream category slugs to our internal
// category tags. The table is closed on purpose: a slug that shows up
// without a mapping means upstream changed their taxonomy and somebody has
// to look at it, so it is a hard error rather than a silent drop.
var categoryReplacements = map[string]string{
	"hurricane-heat":  "hh_4",
	"spartanhh12hr":   "hh_12",
	"spartansprint":   "sprint",
	"spartansuper":    "super",
	"spartanbeast":    "beast",
	"spartanultra":    "ultra",
	"spartankids":     "kids",
	"trail_10k":       "trail_10k",
	"trail_21k":       "trail_21k",
	"trail_50k":       "trail_50k",
	"trail_100k":      "trail_100k",
	"stadion":         "stadion",
	"city":            "city",
}

// ignoredCategories are upstream slugs that are not real on-course events
// (passes, bundles, team registrations). These are dropped without comment.
var ignoredCategories = map[string]struct{}{
	"ultratrifectapass": {},
	"trifectapass":      {},
	"charitychallenge":  {},
	"spartancombo":      {},
	"teams":             {},
}

// mapCategory resolves an upstream slug. ignored means the event should be
// skipped entirely; ok is false when the slug is unknown to both tables.
func mapCategory(slug string) (tag string, ignored, ok bool) {
	if _, skip := ignoredCategories[slug]; skip {
		return "", true, true
	}
	tag, ok = categoryReplacements[slug]
	return tag, false, ok
}

// Tags returns the closed set of internal category tags, sorted
func Tags() []string {
	seen := make(map[string]struct{}, len(categoryReplacements))
	tags := make([]string, 0, len(categoryReplacements))
	for _, tag := range categoryReplacements {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// CategorySet records which internal category tags a race offers. It is
// keyed by the closed tag enumeration, so membership checks cannot drift
// from the taxonomy table.
type CategorySet map[string]bool

// NewCategorySet returns a set with every known tag present and unset
func NewCategorySet() CategorySet {
	set := make(CategorySet)
	for _, tag := range Tags() {
		set[tag] = false
	}
	return set
}

// Mark flags a tag as offered. Unknown tags are ignored; they can only
// come from code, not upstream, since mapCategory gates everything else.
func (s CategorySet) Mark(tag string) {
	if _, known := s[tag]; known {
		s[tag] = true
	}
}

// Offered returns the marked tags, sorted
func (s CategorySet) Offered() []string {
	var offered []string
	for tag, on := range s {
		if on {
			offered = append(offered, tag)
		}
	}
	sort.Strings(offered)
	return offered
}
