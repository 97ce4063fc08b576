//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_MigrationsApplied(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	for _, table := range []string{
		"cases", "devices", "chat_messages", "call_logs", "contacts",
		"media_files", "forensic_entities", "forensic_entity_sightings", "queries",
	} {
		var exists bool
		err := testDB.DB.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestTestDB_Scoped(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := testDB.Scoped(t)

	if err := ctx.Err(); err != nil {
		t.Fatalf("unexpected context error: %v", err)
	}
}
