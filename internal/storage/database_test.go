package storage

import (
	"path/filepath"
	"testing"

	"bizdesk/internal/config"
)

func TestOpenMemoryAndMigrate(t *testing.T) {
	cfg := config.Default()
	db, err := Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// idempotent
	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	for _, table := range []string{"entities", "bank_accounts", "portals", "documents", "reminders", "vendor_invoices"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenFileDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Databases["sqlite3"] = config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "desk.db")}
	db, err := Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.Default()
	if _, err := Open("postgres", cfg); err == nil {
		t.Fatalf("expected error for missing driver config")
	}
	cfg.Databases["oracle"] = config.DatabaseConfig{DSN: "x"}
	if _, err := Open("oracle", cfg); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if err := Migrate(nil, "oracle"); err == nil {
		t.Fatalf("expected unsupported migration driver error")
	}
}
