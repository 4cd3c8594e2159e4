// Package sqlite_test contains integration tests for SQLite repositories.
//
// This file is the single point where the database schema is loaded for
// tests. All setup goes through db.GetSchemaSQL() so test tables cannot
// drift from production. Do not hardcode CREATE TABLE statements in test
// files; use setupTestDB() and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/orphanscan/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedRun inserts a finished run started at startedAt (SQLite layout) and
// returns its ID.
func seedRun(t *testing.T, db *sql.DB, id, status, startedAt string) string {
	t.Helper()
	if id == "" {
		id = "run-001"
	}
	if status == "" {
		status = "success"
	}
	_, err := db.Exec("INSERT INTO runs (id, status, started_at, finished_at) VALUES (?, ?, ?, ?)", id, status, startedAt, startedAt)
	if err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}
	return id
}
