// Package history reconstructs past values of tracked fields from the
// append-only change log.
//
// A field's value at the end of year Y is found by undoing every edit dated
// in a later year: the oldest such edit's old value is what the field held
// before any of them happened. Edits made during Y itself are kept.
package history

import (
	"sort"
	"time"

	"github.com/rpattn/esgdash/internal/domain"
)

// Timeline is the ordered edit sequence of one (entity, field) pair.
type Timeline struct {
	entries []domain.ChangeLogEntry
}

// NewTimeline sorts entries by timestamp, then id.
func NewTimeline(entries []domain.ChangeLogEntry) Timeline {
	sorted := make([]domain.ChangeLogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.ID < b.ID
		}
		return a.UpdatedAt.Before(b.UpdatedAt)
	})
	return Timeline{entries: sorted}
}

// Len returns the number of edits.
func (t Timeline) Len() int {
	return len(t.entries)
}

// ValueAt returns the value the field held at cutoff. Edits strictly after
// cutoff are undone; current is returned when there are none.
func (t Timeline) ValueAt(current *string, cutoff time.Time) *string {
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].UpdatedAt.After(cutoff)
	})
	if idx == len(t.entries) {
		return current
	}
	return t.entries[idx].OldValue
}

// ValueInYear returns the field value as of December 31 of year.
func (t Timeline) ValueInYear(current *string, year int) *string {
	for _, entry := range t.entries {
		if entry.UpdatedAt.UTC().Year() > year {
			return entry.OldValue
		}
	}
	return current
}

// Resolve is the single entity form of Index.Resolve.
func Resolve(current *string, entries []domain.ChangeLogEntry, year int) *string {
	return NewTimeline(entries).ValueInYear(current, year)
}

type timelineKey struct {
	entityID int64
	field    domain.TrackedField
}

// Index groups a flat change log by (entity, field).
type Index struct {
	timelines map[timelineKey]Timeline
}

// NewIndex groups and sorts entries. Entries for untracked fields are kept;
// callers decide which fields they resolve.
func NewIndex(entries []domain.ChangeLogEntry) *Index {
	grouped := make(map[timelineKey][]domain.ChangeLogEntry)
	for _, entry := range entries {
		key := timelineKey{entityID: entry.EntityID, field: entry.Field}
		grouped[key] = append(grouped[key], entry)
	}

	timelines := make(map[timelineKey]Timeline, len(grouped))
	for key, group := range grouped {
		timelines[key] = NewTimeline(group)
	}
	return &Index{timelines: timelines}
}

// Timeline returns the edits of one field of one entity.
func (idx *Index) Timeline(entityID int64, field domain.TrackedField) Timeline {
	if idx == nil {
		return Timeline{}
	}
	return idx.timelines[timelineKey{entityID: entityID, field: field}]
}

// Resolve returns the effective value of field for entityID as of Dec 31 of year.
func (idx *Index) Resolve(entityID int64, field domain.TrackedField, current *string, year int) *string {
	return idx.Timeline(entityID, field).ValueInYear(current, year)
}

// ResolveID resolves a lookup id column; ok is false when the value is NULL
// or not an id.
func (idx *Index) ResolveID(entityID int64, field domain.TrackedField, current *string, year int) (int64, bool) {
	return domain.ParseIDText(idx.Resolve(entityID, field, current, year))
}
