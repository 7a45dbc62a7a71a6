package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func countingMigration(version int, applied *int) plugin.Migration {
	return plugin.Migration{
		Version:     version,
		Description: "test migration",
		Up: func(tx *sql.Tx) error {
			*applied++
			_, err := tx.Exec("CREATE TABLE IF NOT EXISTS t (id INTEGER)")
			return err
		},
	}
}

func TestMigrate_AppliesOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var applied int
	migs := []plugin.Migration{countingMigration(1, &applied)}

	if err := s.Migrate(ctx, "demo", migs); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := s.Migrate(ctx, "demo", migs); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if applied != 1 {
		t.Errorf("migration ran %d times, want 1", applied)
	}

	var count int
	err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM _migrations WHERE plugin_name = 'demo' AND version = 1",
	).Scan(&count)
	if err != nil {
		t.Fatalf("query _migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("_migrations rows = %d, want 1", count)
	}
}

func TestMigrate_IsolatedPerPlugin(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var a, b int
	if err := s.Migrate(ctx, "alpha", []plugin.Migration{countingMigration(1, &a)}); err != nil {
		t.Fatalf("Migrate alpha: %v", err)
	}
	if err := s.Migrate(ctx, "beta", []plugin.Migration{countingMigration(1, &b)}); err != nil {
		t.Fatalf("Migrate beta: %v", err)
	}
	if a != 1 || b != 1 {
		t.Errorf("applied counts = (%d, %d), want (1, 1): same version under different plugins", a, b)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	migs := []plugin.Migration{{
		Version:     1,
		Description: "broken",
		Up: func(tx *sql.Tx) error {
			return errors.New("boom")
		},
	}}
	if err := s.Migrate(ctx, "demo", migs); err == nil {
		t.Fatal("Migrate with failing Up succeeded, want error")
	}

	var count int
	err := s.DB().QueryRow("SELECT COUNT(*) FROM _migrations WHERE plugin_name = 'demo'").Scan(&count)
	if err != nil {
		t.Fatalf("query _migrations: %v", err)
	}
	if count != 0 {
		t.Errorf("failed migration was recorded (%d rows), want 0", count)
	}
}

func TestTx_RollbackOnError(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.DB().Exec("CREATE TABLE items (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO items (id) VALUES (1)"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("Tx returned nil, want the callback error")
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 0 {
		t.Errorf("items = %d after rollback, want 0", count)
	}
}

func TestCheckVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("first run records version", func(t *testing.T) {
		s := testStore(t)
		if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
			t.Fatalf("CheckVersion: %v", err)
		}
		var stored string
		if err := s.DB().QueryRow("SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored); err != nil {
			t.Fatalf("query _schema_meta: %v", err)
		}
		if stored != "1.2.0" {
			t.Errorf("stored version = %s, want 1.2.0", stored)
		}
	})

	t.Run("same version passes", func(t *testing.T) {
		s := testStore(t)
		if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
			t.Fatalf("first CheckVersion: %v", err)
		}
		if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
			t.Errorf("same-version CheckVersion: %v", err)
		}
	})

	t.Run("newer binary upgrades the record", func(t *testing.T) {
		s := testStore(t)
		if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
			t.Fatalf("first CheckVersion: %v", err)
		}
		if err := s.CheckVersion(ctx, "1.3.0"); err != nil {
			t.Fatalf("upgrade CheckVersion: %v", err)
		}
		var stored string
		if err := s.DB().QueryRow("SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored); err != nil {
			t.Fatalf("query _schema_meta: %v", err)
		}
		if stored != "1.3.0" {
			t.Errorf("stored version = %s, want 1.3.0", stored)
		}
	})

	t.Run("older binary is rejected", func(t *testing.T) {
		s := testStore(t)
		if err := s.CheckVersion(ctx, "2.0.0"); err != nil {
			t.Fatalf("first CheckVersion: %v", err)
		}
		err := s.CheckVersion(ctx, "1.9.0")
		if !errors.Is(err, ErrNewerSchema) {
			t.Errorf("CheckVersion with older binary = %v, want ErrNewerSchema", err)
		}
	})

	t.Run("dev always passes", func(t *testing.T) {
		s := testStore(t)
		if err := s.CheckVersion(ctx, "2.0.0"); err != nil {
			t.Fatalf("first CheckVersion: %v", err)
		}
		if err := s.CheckVersion(ctx, "dev"); err != nil {
			t.Errorf("dev CheckVersion against 2.0.0 database: %v", err)
		}
	})
}
