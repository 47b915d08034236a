package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ddlconv/ddlconv/internal/config"
	"github.com/ddlconv/ddlconv/internal/diag"
)

// FileStore keeps one envelope file per table under a directory.
type FileStore struct {
	dir string
}

type envelope struct {
	Record
	Document json.RawMessage `json:"document"`
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("registry directory is required")
	}
	dir = config.ExpandHome(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(table string) string {
	return filepath.Join(f.dir, strings.ToLower(Key(table))+".json")
}

func (f *FileStore) Put(_ context.Context, rec Record) error {
	rec.Table = Key(rec.Table)
	if rec.Table == "" || strings.ContainsAny(rec.Table, `/\`) {
		return diag.Validationf(rec.Table, 0, "invalid table name for registry")
	}
	data, err := json.MarshalIndent(envelope{Record: rec, Document: rec.Document}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	tmp := f.path(rec.Table) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return os.Rename(tmp, f.path(rec.Table))
}

func (f *FileStore) Get(_ context.Context, table string) (*Record, error) {
	data, err := os.ReadFile(f.path(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, diag.NotFoundf(table, "no published configuration")
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}
	return decodeEnvelope(data)
}

func (f *FileStore) List(_ context.Context) ([]Record, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(m), err)
		}
		rec, err := decodeEnvelope(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(m), err)
		}
		rec.Document = nil
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

func (f *FileStore) Close() error { return nil }

func decodeEnvelope(data []byte) (*Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, diag.Decode("registry", 0, err)
	}
	rec := env.Record
	rec.Document = []byte(env.Document)
	return &rec, nil
}
