package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeTooLarge, status: http.StatusRequestEntityTooLarge, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests},
		{code: CodeUpstream, status: http.StatusBadGateway, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeUpstream, cause, "Failed to trigger media generation")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Message() != "Failed to trigger media generation" {
		t.Fatalf("unexpected message %q", wrapped.Message())
	}

	outer := fmt.Errorf("listing action: %w", wrapped)
	if !IsCode(outer, CodeUpstream) {
		t.Fatalf("expected IsCode to find upstream code through fmt wrapping")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("IsCode matched the wrong code")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeStateConflict, "Media generation is not allowed while listing is %s", "publishing")
	if err.Message() != "Media generation is not allowed while listing is publishing" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.WithDetails(map[string]string{"status": "publishing"}).Details() == nil {
		t.Fatalf("details should be preserved")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	if got := As(New(CodeForbidden, "no entry")); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("As should not type plain errors")
	}
}

func TestDumpIncludesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key", TableName: "users", Message: "duplicate key value"}
	err := Wrap(CodeConflict, pgErr, "db: insert user")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Store != "postgres" || d.SQLState != "23505" || d.Constraint != "users_email_key" || d.Table != "users" {
		t.Fatalf("unexpected db fields %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
	fields := d.Fields()
	if fields["db_constraint"] != "users_email_key" || fields["error_code"] != CodeConflict {
		t.Fatalf("unexpected log fields %v", fields)
	}
	if _, ok := fields["db_column"]; ok {
		t.Fatalf("empty driver fields should be omitted: %v", fields)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("expected empty dump for nil")
	}
}

func TestDumpRecognisesSQLiteAndTimeouts(t *testing.T) {
	lite := Wrap(CodeConflict, sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, "db: insert listing")
	d := Dump(lite)
	if d.Store != "sqlite" || d.SQLState != "2067" {
		t.Fatalf("unexpected sqlite dump %+v", d)
	}

	trigger := Wrap(CodeUpstream, fmt.Errorf("trigger media: %w", context.DeadlineExceeded), "automation")
	fields := Dump(trigger).Fields()
	if fields["timeout"] != true {
		t.Fatalf("expected timeout flag, got %v", fields)
	}
	if _, ok := fields["db_store"]; ok {
		t.Fatalf("no driver error in chain, got %v", fields)
	}

	plain := Dump(stdErrors.New("boom")).Fields()
	if len(plain) != 1 || plain["error"] != "boom" {
		t.Fatalf("plain error should only carry its message, got %v", plain)
	}
}
