package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"strings"
	"testing"

	_ "github.com/lib/pq"
)

func TestEmbeddedSchemaWellFormed(t *testing.T) {
	entries, err := fs.ReadDir(schemaFS, "sql")
	if err != nil {
		t.Fatalf("read embedded schema: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s in embedded schema", name)
		}

		data, err := fs.ReadFile(schemaFS, "sql/"+name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			t.Fatalf("migration %s is empty", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Fatalf("migration %s has no down counterpart", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Fatalf("migration %s has no up counterpart", base)
		}
	}
}

func TestApplyIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := Apply(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	// Second run must be a no-op.
	if err := Apply(context.Background(), db); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
}
