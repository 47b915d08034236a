package schema

import "strings"

// Table is the schema of one mainframe table as extracted from its DDL.
// It is built once per input document and treated as read-only afterwards.
type Table struct {
	Name          string        `yaml:"name" json:"name"`
	SchemaName    string        `yaml:"schema_name" json:"schema_name"`
	Database      string        `yaml:"database" json:"database"`
	Tablespace    string        `yaml:"tablespace" json:"tablespace"`
	Description   string        `yaml:"description,omitempty" json:"description,omitempty"`
	Columns       []Column      `yaml:"columns" json:"columns"`
	UniqueIndexes []UniqueIndex `yaml:"unique_indexes,omitempty" json:"unique_indexes,omitempty"`
}

// Column is a single column definition in declaration order.
type Column struct {
	Name        string   `yaml:"name" json:"name"`
	Type        DataType `yaml:"type" json:"type"`
	Nullable    bool     `yaml:"nullable" json:"nullable"`
	Default     *Default `yaml:"default,omitempty" json:"default,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// DataType is a parsed source type token such as VARCHAR(50) or DEC(10,2).
// Length is only set for character kinds; Precision and Scale only for
// exact numeric kinds.
type DataType struct {
	Kind      string `yaml:"kind" json:"kind"`
	Length    *int   `yaml:"length,omitempty" json:"length,omitempty"`
	Precision *int   `yaml:"precision,omitempty" json:"precision,omitempty"`
	Scale     *int   `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// DefaultKind tells how a Default value should be rendered.
type DefaultKind string

const (
	DefaultString     DefaultKind = "string"
	DefaultNumber     DefaultKind = "number"
	DefaultExpression DefaultKind = "expression" // CURRENT_DATE and friends
)

// Default is the value a column takes when the source omits it.
type Default struct {
	Kind  DefaultKind `yaml:"kind" json:"kind"`
	Value string      `yaml:"value" json:"value"`
}

// UniqueIndex is a CREATE UNIQUE INDEX statement targeting the table.
type UniqueIndex struct {
	SchemaName string   `yaml:"schema_name" json:"schema_name"`
	Name       string   `yaml:"name" json:"name"`
	Columns    []string `yaml:"columns" json:"columns"`
}

// Character kinds carry a length parameter.
var characterKinds = map[string]bool{
	"CHAR":       true,
	"CHARACTER":  true,
	"VARCHAR":    true,
	"GRAPHIC":    true,
	"VARGRAPHIC": true,
}

// Exact numeric kinds carry precision and scale.
var decimalKinds = map[string]bool{
	"DEC":     true,
	"DECIMAL": true,
	"NUMERIC": true,
}

// IsCharacter reports whether kind takes a length parameter.
func IsCharacter(kind string) bool {
	return characterKinds[strings.ToUpper(kind)]
}

// IsDecimal reports whether kind takes precision and scale.
func IsDecimal(kind string) bool {
	return decimalKinds[strings.ToUpper(kind)]
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the columns of the first unique index, which stands in
// for the table key. It is empty when the DDL declares no unique index.
func (t *Table) PrimaryKey() []string {
	if len(t.UniqueIndexes) == 0 {
		return []string{}
	}
	key := make([]string, len(t.UniqueIndexes[0].Columns))
	copy(key, t.UniqueIndexes[0].Columns)
	return key
}

// QualifiedName returns schema.name.
func (t *Table) QualifiedName() string {
	return t.SchemaName + "." + t.Name
}

// String renders the type the way it appears in DDL.
func (d DataType) String() string {
	switch {
	case d.Length != nil:
		return d.Kind + "(" + itoa(*d.Length) + ")"
	case d.Precision != nil && d.Scale != nil:
		return d.Kind + "(" + itoa(*d.Precision) + "," + itoa(*d.Scale) + ")"
	case d.Precision != nil:
		return d.Kind + "(" + itoa(*d.Precision) + ")"
	default:
		return d.Kind
	}
}
