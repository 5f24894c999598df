package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpExtractsPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "stories_media_id_key", TableName: "stories", Message: "duplicate key value"}
	err := Wrap(CodeDuplicate, fmt.Errorf("insert story: %w", pgErr), "story already exists")

	d := Dump(err)
	if d.Code != CodeDuplicate {
		t.Fatalf("expected duplicate code, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGConstraint != "stories_media_id_key" || d.PGTable != "stories" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestDumpExtractsPqFields(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505", Constraint: "keywords_name_key", Table: "keywords"})

	d := Dump(err)
	if d.PGCode != "23505" || d.PGConstraint != "keywords_name_key" {
		t.Fatalf("unexpected pq fields %+v", d)
	}
	if d.Code != "" {
		t.Fatalf("untyped error should not carry a code, got %s", d.Code)
	}
}

func TestDumpMarksRetryableExternalErrors(t *testing.T) {
	d := Dump(External("speech", fmt.Errorf("deadline exceeded")))
	if !d.Retryable {
		t.Fatalf("external errors should be flagged retryable")
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("nil dump should be empty")
	}
}

func TestDumpLogFieldsSkipsEmptyValues(t *testing.T) {
	fields := Dump(New(CodeNotFound, "media not found")).LogFields()
	if fields["error_code"] != string(CodeNotFound) {
		t.Fatalf("unexpected fields %#v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("pg_code should be omitted without a database error")
	}
}
