package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/esgdash/internal/domain"
)

func TestIsUniqueViolation_MatchesConstraint(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: registrationConstraint})

	if !isUniqueViolation(err, registrationConstraint) {
		t.Fatalf("expected wrapped unique violation to match")
	}
	if !isUniqueViolation(err, "") {
		t.Fatalf("expected empty constraint to match any unique violation")
	}
	if isUniqueViolation(err, "users_email_key") {
		t.Fatalf("did not expect a different constraint to match")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation is not a unique violation")
	}
}

func TestNotFound_WrapsNoRows(t *testing.T) {
	err := notFound(pgx.ErrNoRows, "employee 7")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err.Error() != "employee 7: not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	other := errors.New("boom")
	if notFound(other, "employee 7") != other {
		t.Fatalf("expected other errors to pass through")
	}
}

func TestDecimalValue(t *testing.T) {
	value, err := decimalValue(pgtype.Text{String: "158.00", Valid: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value.String() != "158" {
		t.Fatalf("expected 158, got %s", value)
	}

	value, err = decimalValue(pgtype.Text{})
	if err != nil || !value.IsZero() {
		t.Fatalf("expected NULL to read as zero, got %s (%v)", value, err)
	}

	if _, err := decimalValue(pgtype.Text{String: "n/a", Valid: true}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDateValueTruncatesToDate(t *testing.T) {
	if dateValue(pgtype.Date{}) != nil {
		t.Fatalf("expected NULL date to be nil")
	}

	d := dateValue(pgtype.Date{Time: time.Date(2023, time.February, 10, 0, 0, 0, 0, time.UTC), Valid: true})
	if d == nil || d.String() != "2023-02-10" {
		t.Fatalf("unexpected date %v", d)
	}
}

func TestEmployeeArgsTrimAndNulls(t *testing.T) {
	education := int64(3)
	employment := domain.NewDate(2019, time.June, 1)
	args := employeeArgs(domain.Employee{
		Company:        "  Acme ",
		FullName:       " Ada ",
		EducationID:    &education,
		EmploymentDate: &employment,
	})

	if len(args) != len(employeeCopyColumns) {
		t.Fatalf("expected %d args, got %d", len(employeeCopyColumns), len(args))
	}
	if args[0] != "Acme" || args[1] != "Ada" {
		t.Fatalf("expected trimmed company and name, got %v %v", args[0], args[1])
	}
	if args[2] != nil || args[3] != nil {
		t.Fatalf("expected nil birth date and gender, got %v %v", args[2], args[3])
	}
	if args[4] != int64(3) {
		t.Fatalf("expected education 3, got %v", args[4])
	}
}

func TestDuplicateRegistration(t *testing.T) {
	vehicles := []domain.Vehicle{
		{RegistrationNumber: "B-AC 1"},
		{RegistrationNumber: "B-AC 2"},
		{RegistrationNumber: " B-AC 1 "},
	}
	if got := duplicateRegistration(vehicles); got != "B-AC 1" {
		t.Fatalf("expected B-AC 1, got %q", got)
	}
	if got := duplicateRegistration(vehicles[:2]); got != "" {
		t.Fatalf("expected no duplicate, got %q", got)
	}
}

func TestCreateBatch_RejectsInvalidRowsBeforeWriting(t *testing.T) {
	employment := domain.NewDate(2020, time.January, 1)
	repo := &employeeRepository{}

	inserted, err := repo.CreateBatch(context.Background(), []domain.Employee{
		{Company: "Acme", FullName: "Ada", EmploymentDate: &employment},
		{Company: "Acme", EmploymentDate: &employment},
	})
	if inserted != 0 {
		t.Fatalf("expected nothing inserted, got %d", inserted)
	}

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(validationErr.Fields) != 1 || validationErr.Fields[0] != "full_name" {
		t.Fatalf("expected full_name to be reported, got %v", validationErr.Fields)
	}
}

func TestLookupSelectRejectsUnknownKind(t *testing.T) {
	if _, err := lookupSelect("colours"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, kind := range domain.LookupKinds {
		if _, err := lookupSelect(kind); err != nil {
			t.Fatalf("expected a query for %s: %v", kind, err)
		}
	}
}
