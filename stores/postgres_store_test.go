package stores_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/fieldline/actionbox/stores"
	"github.com/fieldline/actionbox/test/database"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	db := database.OpenPostgres(t)
	ctx := context.Background()

	store := stores.NewPostgresStore(db)
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

	if err := store.Save(ctx, actions[:1]); err != nil {
		t.Fatalf("second Save error: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	assertSameActions(t, loaded, actions[:1])
}

func TestPostgresStorePreservesOrder(t *testing.T) {
	db := database.OpenPostgres(t)
	ctx := context.Background()

	store := stores.NewPostgresStore(db, stores.WithPostgresTable("actionbox_order_test"))
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE actionbox_order_test`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	actions := testActions()
	for i := range actions {
		actions[i].ID = fmt.Sprintf("ord-%d", i)
	}
	if err := store.Save(ctx, actions); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	for i := range loaded {
		if loaded[i].ID != fmt.Sprintf("ord-%d", i) {
			t.Fatalf("position %d holds %s", i, loaded[i].ID)
		}
	}
}
