package domain

import "sort"

// EntityHistory is the change log of a single entity, newest first.
type EntityHistory struct {
	EntityID int64            `json:"entity_id"`
	Entries  []ChangeLogEntry `json:"entries"`
}

// NewEntityHistory orders entries newest first, breaking timestamp ties by id.
func NewEntityHistory(entityID int64, entries []ChangeLogEntry) EntityHistory {
	ordered := make([]ChangeLogEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].UpdatedAt.Equal(ordered[j].UpdatedAt) {
			return ordered[i].ID > ordered[j].ID
		}
		return ordered[i].UpdatedAt.After(ordered[j].UpdatedAt)
	})
	return EntityHistory{EntityID: entityID, Entries: ordered}
}
