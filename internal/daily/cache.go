// Package daily decides which remote node a date-bucketed note lands in:
// cached mapping first, then a remote lookup by date-titled child, then
// creation of a new node, with a one-shot recovery when a resolved node has
// disappeared upstream.
package daily

import "time"

// DateKeyLayout is the calendar-date key format, always the caller's local
// date.
const DateKeyLayout = "2006-01-02"

// RetentionDays is how long cache entries are kept relative to today.
const RetentionDays = 7

// Cache maps a date key to the node created for that date. It is client-held
// state: it arrives in the request, may be updated during resolution, and is
// returned for the caller to persist. One cache belongs to one destination;
// the server never mixes caches across parents.
type Cache map[string]string

// DateKey formats t's calendar date in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// Prune drops entries older than RetentionDays before today. Today's entry
// is never removed; the cutoff itself is retained. Date keys sort
// lexicographically, so a string comparison suffices.
func Prune(cache Cache, today string) Cache {
	t, err := time.Parse(DateKeyLayout, today)
	if err != nil {
		return cache
	}
	cutoff := t.AddDate(0, 0, -RetentionDays).Format(DateKeyLayout)

	pruned := make(Cache, len(cache))
	for key, ref := range cache {
		if key >= cutoff {
			pruned[key] = ref
		}
	}
	return pruned
}
