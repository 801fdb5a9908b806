package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"sprintboard/internal/storage"
	"sprintboard/internal/storage/storagetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	store, err := Open(DriverSQLite, dbPath, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return openTestStore(t)
	})
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
	}{
		{"empty dsn", DriverSQLite, ""},
		{"unknown driver", "oracle", "whatever"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(tt.driver, tt.dsn, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
