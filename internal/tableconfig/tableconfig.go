// Package tableconfig holds the pipeline configuration document produced for
// a table and its structured encodings.
package tableconfig

import "strings"

// Fixed constants of the output contract.
const (
	Delimiter     = "|"
	Format        = "csv"
	StructureType = "struct"
)

// Jsonparameter names.
const (
	ParamInt    = "int"
	ParamString = "string"
)

// Curation stages.
const (
	StageKafka  = "kafka"
	StageUnload = "unload"
)

// TableConfig is the configuration of one table. It is produced once per
// synthesis call and never mutated afterwards.
type TableConfig struct {
	Delimiter string        `json:"delimiter" yaml:"delimiter"`
	Format    string        `json:"format" yaml:"format"`
	TableKey  []string      `json:"tableKey" yaml:"tableKey"`
	Fields    []FieldConfig `json:"-" yaml:"-"`
}

// FieldConfig describes one output field.
type FieldConfig struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Nullable bool     `json:"nullable" yaml:"nullable"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Metadata carries the rename and curation directives for a field.
type Metadata struct {
	Description       string         `json:"description" yaml:"description"`
	InputType         string         `json:"inputType" yaml:"inputType"`
	OutputType        string         `json:"outputType" yaml:"outputType"`
	RenameTo          string         `json:"renameTo" yaml:"renameTo"`
	JSONParameterName string         `json:"jsonParameterName" yaml:"jsonParameterName"`
	Curations         []CurationRule `json:"curations,omitempty" yaml:"curations,omitempty"`
}

// CurationRule is a post-processing directive applied during the listed
// pipeline stages.
type CurationRule struct {
	Name  string   `json:"name" yaml:"name"`
	Input string   `json:"input" yaml:"input"`
	RunOn []string `json:"runOn" yaml:"runOn"`
}

// New returns an empty TableConfig with the contract constants set.
func New(key []string) *TableConfig {
	if key == nil {
		key = []string{}
	}
	return &TableConfig{
		Delimiter: Delimiter,
		Format:    Format,
		TableKey:  key,
	}
}

// Field returns the field with the given source name.
func (c *TableConfig) Field(name string) (*FieldConfig, bool) {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i], true
		}
	}
	return nil, false
}

// FieldNames returns field names in output order.
func (c *TableConfig) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// AuditPrefix marks audit fields carried over by the inherit policy.
const AuditPrefix = "AUD_"

// Audit fields the pipeline appends to every table.
const (
	AuditEntryType      = "AUD_ENTTYP"
	AuditApplyTimestamp = "AUD_APPLY_TIMESTAMP"
)

// IsAudit reports whether the field is an audit field.
func (f FieldConfig) IsAudit() bool {
	return strings.HasPrefix(f.Name, AuditPrefix)
}

// IsPipelineAudit reports whether name is one of the audit fields the
// pipeline appends. Matching is exact; a source column such as AUD_USER is
// an ordinary column.
func IsPipelineAudit(name string) bool {
	return name == AuditEntryType || name == AuditApplyTimestamp
}

// AuditFields returns copies of the audit fields of c, in order.
func (c *TableConfig) AuditFields() []FieldConfig {
	var out []FieldConfig
	for _, f := range c.Fields {
		if f.IsAudit() {
			out = append(out, f.clone())
		}
	}
	return out
}

func (f FieldConfig) clone() FieldConfig {
	out := f
	if f.Metadata.Curations != nil {
		out.Metadata.Curations = make([]CurationRule, len(f.Metadata.Curations))
		for i, r := range f.Metadata.Curations {
			r.RunOn = append([]string(nil), r.RunOn...)
			out.Metadata.Curations[i] = r
		}
	}
	return out
}
