package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}

	for _, f := range files {
		body, err := fs.ReadFile(migrationFS, f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		text := string(body)
		if !strings.Contains(text, "-- +goose Up") || !strings.Contains(text, "-- +goose Down") {
			t.Errorf("%s: missing goose annotations", f)
		}
	}
}

func TestMigrations_InitSchema(t *testing.T) {
	body, err := fs.ReadFile(migrationFS, "migrations/00001_init.sql")
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	text := string(body)

	for _, want := range []string{
		"CREATE TABLE applications",
		"document_generated BOOLEAN NOT NULL DEFAULT false",
		"status             application_status NOT NULL DEFAULT 'pending'",
		"username      TEXT NOT NULL UNIQUE",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("init migration missing %q", want)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !isUniqueViolation(unique) {
		t.Error("23505 should be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", unique)) {
		t.Error("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("nil is not a unique violation")
	}
}
