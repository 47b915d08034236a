// Package registry stores generated configuration documents by table name
// so later comparisons can start from the last published version.
package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ddlconv/ddlconv/internal/config"
	"github.com/ddlconv/ddlconv/internal/dedup"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
)

// Record is one published configuration document.
type Record struct {
	Table     string    `json:"table"`
	Document  []byte    `json:"-"`
	Hash      string    `json:"hash"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store abstracts the registry backend.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, table string) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Key normalizes a table name into the registry key.
func Key(table string) string {
	return strings.ToUpper(strings.TrimSpace(table))
}

// New opens the backend selected in cfg.
func New(ctx context.Context, cfg config.RegistryConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Directory)
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	case "mongodb":
		return NewMongoStore(ctx, cfg.URI, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
}

// Publish stores every table of doc as its own single-table document.
func Publish(ctx context.Context, store Store, doc tableconfig.Document, source string) ([]Record, error) {
	var out []Record
	for _, name := range doc.Tables() {
		data, err := tableconfig.NewDocument(name, doc[name]).EncodeJSON()
		if err != nil {
			return out, fmt.Errorf("encoding %s: %w", name, err)
		}
		rec := Record{
			Table:     Key(name),
			Document:  data,
			Hash:      dedup.Hash(data),
			Source:    source,
			UpdatedAt: time.Now().UTC(),
		}
		if err := store.Put(ctx, rec); err != nil {
			return out, fmt.Errorf("publishing %s: %w", name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadDocument fetches and decodes the document published for table.
func LoadDocument(ctx context.Context, store Store, table string) (tableconfig.Document, error) {
	rec, err := store.Get(ctx, table)
	if err != nil {
		return nil, err
	}
	return tableconfig.DecodeJSON(rec.Document)
}
