package domain

import (
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDiffSnapshotsReportsOnlyChangedFields(t *testing.T) {
	before := Employee{EducationID: int64Ptr(2), GenderID: int64Ptr(1)}
	after := Employee{EducationID: int64Ptr(3), GenderID: int64Ptr(1), PositionID: int64Ptr(7)}

	changes := DiffSnapshots(EmployeeTrackedFields, before.Snapshot(), after.Snapshot())
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %+v", len(changes), changes)
	}

	if changes[0].Field != FieldEducationID {
		t.Fatalf("expected education_id first, got %s", changes[0].Field)
	}
	if *changes[0].Old != "2" || *changes[0].New != "3" {
		t.Fatalf("unexpected education change: %v -> %v", *changes[0].Old, *changes[0].New)
	}

	if changes[1].Field != FieldPositionID {
		t.Fatalf("expected position_id second, got %s", changes[1].Field)
	}
	if changes[1].Old != nil {
		t.Fatalf("expected nil old position, got %q", *changes[1].Old)
	}
}

func TestDiffSnapshotsClearingAField(t *testing.T) {
	before := Vehicle{VehicleTypeID: int64Ptr(4), RegistrationNumber: "AB-123"}
	after := Vehicle{RegistrationNumber: " AB-123 "}

	changes := DiffSnapshots(FleetTrackedFields, before.Snapshot(), after.Snapshot())
	if len(changes) != 1 {
		t.Fatalf("expected a single change, got %+v", changes)
	}
	if changes[0].Field != FieldVehicleTypeID || changes[0].New != nil {
		t.Fatalf("expected vehicle_type_id to be cleared, got %+v", changes[0])
	}
}

func TestChangeLogEntriesShareTimestamp(t *testing.T) {
	at := time.Date(2023, time.February, 10, 9, 0, 0, 0, time.UTC)
	changes := []FieldChange{
		{Field: FieldEducationID, Old: IDText(int64Ptr(2)), New: IDText(int64Ptr(3))},
		{Field: FieldGenderID, Old: nil, New: IDText(int64Ptr(1))},
	}

	entries := ChangeLogEntries(42, changes, at)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.EntityID != 42 {
			t.Errorf("expected entity 42, got %d", entry.EntityID)
		}
		if !entry.UpdatedAt.Equal(at) {
			t.Errorf("expected timestamp %s, got %s", at, entry.UpdatedAt)
		}
	}
}

func TestSnapshotCanonicalText(t *testing.T) {
	snapshot := Employee{EducationID: int64Ptr(2)}.Snapshot()

	lines := snapshot.CanonicalText([]TrackedField{FieldEducationID, FieldGenderID})
	expected := []string{
		`education_id: "2"`,
		`gender_id: <null>`,
	}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d: %v", len(expected), len(lines), lines)
	}
	for idx, line := range expected {
		if lines[idx] != line {
			t.Errorf("line %d mismatch: expected %q got %q", idx, line, lines[idx])
		}
	}
}

func TestNewEntityHistoryOrdersNewestFirst(t *testing.T) {
	older := time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)

	history := NewEntityHistory(1, []ChangeLogEntry{
		{ID: 1, Field: FieldEducationID, UpdatedAt: older},
		{ID: 3, Field: FieldGenderID, UpdatedAt: newer},
		{ID: 2, Field: FieldEducationID, UpdatedAt: newer},
	})

	ids := []int64{history.Entries[0].ID, history.Entries[1].ID, history.Entries[2].ID}
	if ids[0] != 3 || ids[1] != 2 || ids[2] != 1 {
		t.Fatalf("unexpected order: %v", ids)
	}
}
