package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a table schema from a YAML file.
func LoadYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	t := &Table{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return t, nil
}

// WriteYAML writes the table schema to a YAML file at the given path.
func (t *Table) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// ToYAML returns the table schema as a YAML byte slice.
func (t *Table) ToYAML() ([]byte, error) {
	return yaml.Marshal(t)
}

// Summary returns a human-readable summary of the table.
func (t *Table) Summary() string {
	var notNull, described int
	for _, c := range t.Columns {
		if !c.Nullable {
			notNull++
		}
		if c.Description != "" {
			described++
		}
	}

	key := "none"
	if pk := t.PrimaryKey(); len(pk) > 0 {
		key = fmt.Sprintf("%v", pk)
	}

	return fmt.Sprintf(
		"Table %s in %s.%s\nFound %d columns (%d not null, %d described), %d unique indexes\nTable key: %s",
		t.QualifiedName(), t.Database, t.Tablespace,
		len(t.Columns), notNull, described, len(t.UniqueIndexes), key,
	)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
