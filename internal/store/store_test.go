package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/tomstout/gifter/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// An in-memory database exists per connection; keep the pool at one.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// setupFileDB backs the database with a file so concurrent connections
// share it.
func setupFileDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, us *UserStore, username string) int64 {
	t.Helper()
	u, err := us.Create(username, username+"@example.com", "Test", "User", "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u.ID
}
