package stores_test

import (
	"context"
	"testing"

	"github.com/fieldline/actionbox/stores"
	"github.com/fieldline/actionbox/test/database"
)

func TestMySQLStoreRoundTrip(t *testing.T) {
	db := database.OpenMySQL(t)
	ctx := context.Background()

	store := stores.NewMySQLStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE actionbox`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	actions := testActions()
	if err := store.Save(ctx, actions); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	assertSameActions(t, loaded, actions)

	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("empty Save error: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("loaded %d actions, want 0", len(loaded))
	}
}
