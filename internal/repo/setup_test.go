package repo

import (
	"fmt"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/viebook/viebook/internal/config"
	"github.com/viebook/viebook/internal/db"
)

// openTestDB connects to the Postgres instance named by TEST_DB_HOST and
// applies migrations. Tests are skipped when the variable is unset so the
// suite stays runnable without infrastructure.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping database tests")
	}
	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		DBName:   envOr("TEST_DB_NAME", "viebook_test"),
		SSLMode:  "disable",
	}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"chapter_chunks", "chapters", "books"} {
			_, _ = conn.Exec(fmt.Sprintf("DELETE FROM %s", table))
		}
		conn.Close()
	})
	return conn
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
