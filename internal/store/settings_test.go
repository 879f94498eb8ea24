package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/erazemk/izposoja/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// First call should generate a secret.
	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call should return the same secret.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestGetOrCreateSettingKeepsFirstValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	calls := 0
	gen := func() (string, error) {
		calls++
		return fmt.Sprintf("value-%d", calls), nil
	}

	for range 3 {
		v, err := GetOrCreateSetting(ctx, database, "k", gen)
		if err != nil {
			t.Fatal(err)
		}
		if v != "value-1" {
			t.Fatalf("expected the first stored value, got %q", v)
		}
	}
}
