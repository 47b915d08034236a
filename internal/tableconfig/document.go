package tableconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ddlconv/ddlconv/internal/diag"
)

// Document is the structured configuration file: one top-level key per
// table name.
type Document map[string]*TableConfig

// wireTable is the on-disk shape of a TableConfig.
type wireTable struct {
	Delimiter string        `json:"delimiter" yaml:"delimiter"`
	Format    string        `json:"format" yaml:"format"`
	TableKey  []string      `json:"tableKey" yaml:"tableKey"`
	Structure wireStructure `json:"structure" yaml:"structure"`
}

type wireStructure struct {
	Type   string        `json:"type" yaml:"type"`
	Fields []FieldConfig `json:"fields" yaml:"fields"`
}

// NewDocument wraps a single table configuration.
func NewDocument(table string, cfg *TableConfig) Document {
	return Document{table: cfg}
}

// Tables returns the table names in sorted order.
func (d Document) Tables() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table picks the configuration for name. The lookup is case-insensitive;
// a document holding a single table returns that table for any name.
func (d Document) Table(name string) (*TableConfig, error) {
	if cfg, ok := d[name]; ok {
		return cfg, nil
	}
	for k, cfg := range d {
		if strings.EqualFold(k, name) {
			return cfg, nil
		}
	}
	if len(d) == 1 {
		for _, cfg := range d {
			return cfg, nil
		}
	}
	return nil, diag.NotFoundf(name, "table not present in configuration document (have %v)", d.Tables())
}

func (c *TableConfig) toWire() wireTable {
	key := c.TableKey
	if key == nil {
		key = []string{}
	}
	fields := c.Fields
	if fields == nil {
		fields = []FieldConfig{}
	}
	return wireTable{
		Delimiter: c.Delimiter,
		Format:    c.Format,
		TableKey:  key,
		Structure: wireStructure{Type: StructureType, Fields: fields},
	}
}

func fromWire(w wireTable) *TableConfig {
	cfg := &TableConfig{
		Delimiter: w.Delimiter,
		Format:    w.Format,
		TableKey:  w.TableKey,
		Fields:    w.Structure.Fields,
	}
	if cfg.TableKey == nil {
		cfg.TableKey = []string{}
	}
	return cfg
}

func (d Document) wire() map[string]wireTable {
	out := make(map[string]wireTable, len(d))
	for name, cfg := range d {
		out[name] = cfg.toWire()
	}
	return out
}

// EncodeJSON renders the document with four-space indentation and without
// HTML escaping so descriptions keep their accents and symbols.
func (d Document) EncodeJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(d.wire()); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeYAML renders the document as YAML.
func (d Document) EncodeYAML() ([]byte, error) {
	data, err := yaml.Marshal(d.wire())
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a configuration document. Malformed input yields a
// diag decode error.
func DecodeJSON(data []byte) (Document, error) {
	var raw map[string]wireTable
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, diag.Decode("configuration document", 0, err)
	}
	if len(raw) == 0 {
		return nil, diag.Decodef("configuration document", 0, "no tables defined")
	}
	doc := make(Document, len(raw))
	for name, w := range raw {
		if w.Structure.Type != "" && w.Structure.Type != StructureType {
			return nil, diag.Decodef(name, 0, "unsupported structure type %q", w.Structure.Type)
		}
		for i, f := range w.Structure.Fields {
			if f.Name == "" {
				return nil, diag.Decodef(name, 0, "field %d has no name", i+1)
			}
		}
		doc[name] = fromWire(w)
	}
	return doc, nil
}

// DecodeYAML parses a YAML configuration document.
func DecodeYAML(data []byte) (Document, error) {
	var raw map[string]wireTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, diag.Decode("configuration document", 0, err)
	}
	if len(raw) == 0 {
		return nil, diag.Decodef("configuration document", 0, "no tables defined")
	}
	doc := make(Document, len(raw))
	for name, w := range raw {
		doc[name] = fromWire(w)
	}
	return doc, nil
}

// LoadJSON reads a configuration document from disk. A missing file is a
// not-found error; unreadable content is a decode error.
func LoadJSON(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, diag.NotFoundf(path, "configuration file does not exist")
		}
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return DecodeJSON(data)
}

// WriteJSON writes the document to path, creating parent directories.
func (d Document) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := d.EncodeJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
