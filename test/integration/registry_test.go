//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ddlconv/ddlconv/internal/config"
	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/registry"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
)

func testDocument(table string) tableconfig.Document {
	return tableconfig.NewDocument(table, &tableconfig.TableConfig{
		Delimiter: ";",
		Format:    "csv",
		TableKey:  []string{"CD_PEDIDO"},
		Fields: []tableconfig.FieldConfig{
			{Name: "CD_PEDIDO"},
			{Name: "DT_PEDIDO"},
		},
	})
}

// exerciseStore runs the registry contract against a live backend.
func exerciseStore(t *testing.T, store registry.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	table := testPrefix + "TBPEDIDO"
	recs, err := registry.Publish(ctx, store, testDocument(table), "pedido.txt")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(recs) != 1 || recs[0].Table != table {
		t.Fatalf("records = %+v", recs)
	}

	doc, err := registry.LoadDocument(ctx, store, table)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	cfg, err := doc.Table(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Fields) != 2 || cfg.Fields[0].Name != "CD_PEDIDO" {
		t.Errorf("fields = %+v", cfg.Fields)
	}

	// Republishing replaces the record.
	again := testDocument(table)
	again[table].Fields = append(again[table].Fields, tableconfig.FieldConfig{Name: "VL_TOTAL"})
	recs2, err := registry.Publish(ctx, store, again, "pedido_v2.txt")
	if err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	if recs2[0].Hash == recs[0].Hash {
		t.Error("hash should change with the document")
	}
	got, err := store.Get(ctx, table)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "pedido_v2.txt" {
		t.Errorf("source = %q", got.Source)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := 0
	for _, r := range list {
		if r.Table == table {
			found++
		}
	}
	if found != 1 {
		t.Errorf("table listed %d times, want 1", found)
	}

	if _, err := store.Get(ctx, testPrefix+"MISSING"); !errors.Is(err, diag.ErrNotFound) {
		t.Errorf("missing Get error = %v, want not found", err)
	}
}

func TestPostgresRegistry(t *testing.T) {
	skipIfNoPostgres(t)
	t.Cleanup(func() { cleanupPostgres(t) })

	store, err := registry.New(context.Background(), config.RegistryConfig{
		Backend: "postgres",
		DSN:     pgConnString(t),
	})
	if err != nil {
		t.Fatalf("opening postgres registry: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)
}

func TestMongoRegistry(t *testing.T) {
	skipIfNoMongo(t)
	t.Cleanup(func() { cleanupMongo(t) })

	store, err := registry.New(context.Background(), config.RegistryConfig{
		Backend:  "mongodb",
		URI:      mongoURI(t),
		Database: mongoDatabase(t),
	})
	if err != nil {
		t.Fatalf("opening mongo registry: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)
}
