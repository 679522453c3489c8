package domain

import (
	"fmt"
	"strings"
	"time"
)

// FieldChange is one tracked field whose value differs between two snapshots.
type FieldChange struct {
	Field TrackedField
	Old   *string
	New   *string
}

// DiffSnapshots compares the listed fields and returns those that changed, in field order.
func DiffSnapshots(fields []TrackedField, before, after Snapshot) []FieldChange {
	changes := make([]FieldChange, 0, len(fields))
	for _, field := range fields {
		oldValue := before[field]
		newValue := after[field]
		if textEqual(oldValue, newValue) {
			continue
		}
		changes = append(changes, FieldChange{Field: field, Old: oldValue, New: newValue})
	}
	return changes
}

// ChangeLogEntries stamps a set of changes for one entity with a shared timestamp.
func ChangeLogEntries(entityID int64, changes []FieldChange, at time.Time) []ChangeLogEntry {
	entries := make([]ChangeLogEntry, len(changes))
	for i, change := range changes {
		entries[i] = ChangeLogEntry{
			EntityID:  entityID,
			Field:     change.Field,
			OldValue:  change.Old,
			NewValue:  change.New,
			UpdatedAt: at,
		}
	}
	return entries
}

// CanonicalText renders the snapshot as sorted "field: value" lines.
func (s Snapshot) CanonicalText(fields []TrackedField) []string {
	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		value := "<null>"
		if v := s[field]; v != nil {
			value = fmt.Sprintf("%q", *v)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", field, value))
	}
	return lines
}

func textEqual(a, b *string) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return strings.TrimSpace(*a) == strings.TrimSpace(*b)
	}
}
