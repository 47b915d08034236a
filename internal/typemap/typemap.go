package typemap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ddlconv/ddlconv/internal/schema"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
)

// Normalized target types.
const (
	TypeString    = "string"
	TypeInteger   = "integer"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeDecimal   = "decimal"
)

// AllTypes lists the non-parameterized target types for cycling in the editor.
var AllTypes = []string{
	TypeString,
	TypeInteger,
	TypeDate,
	TypeTimestamp,
}

// Date format handed to the StringToDate curation.
const DateInputFormat = "dd.MM.yyyy"

// Curation rule names.
const (
	CurationStringToType = "StringToType"
	CurationStringToDate = "StringToDate"
)

// Catalog maps DB2 source type kinds to normalized target types. Lookups
// are pure; Override and RestoreDefault must not race with readers.
type Catalog struct {
	Mappings  map[string]string `yaml:"mappings"`
	Overrides map[string]string `yaml:"overrides,omitempty"`
	defaults  map[string]string // not serialized; populated by Default
}

func staticMappings() map[string]string {
	return map[string]string{
		"DATE":      TypeDate,
		"CHAR":      TypeString,
		"VARCHAR":   TypeString,
		"TIMESTAMP": TypeTimestamp,
		"TIME":      TypeString,
		"INTEGER":   TypeInteger,
		"INT":       TypeInteger,
		"SMALLINT":  TypeInteger,
	}
}

// Default returns the built-in DB2 catalog.
func Default() *Catalog {
	c := &Catalog{Mappings: staticMappings(), Overrides: make(map[string]string)}
	c.defaults = staticMappings()
	return c
}

// IsInteger reports whether kind is one of the integer kinds.
func IsInteger(kind string) bool {
	switch strings.ToUpper(kind) {
	case "INTEGER", "INT", "SMALLINT":
		return true
	}
	return false
}

// Resolve returns the mapped type for a kind, falling back to string.
func (c *Catalog) Resolve(kind string) string {
	if t, ok := c.Mappings[strings.ToUpper(kind)]; ok {
		return t
	}
	return TypeString
}

// Normalize returns the target type for a column's data type. Decimal kinds
// always render from the column's own precision and scale.
func (c *Catalog) Normalize(dt schema.DataType) string {
	if schema.IsDecimal(dt.Kind) {
		p, s := 0, 0
		if dt.Precision != nil {
			p = *dt.Precision
		}
		if dt.Scale != nil {
			s = *dt.Scale
		}
		return fmt.Sprintf("%s(%d, %d)", TypeDecimal, p, s)
	}
	return c.Resolve(dt.Kind)
}

// DefaultFor returns the default value policy for kind. literal is the
// default text found in the source, used only for kinds without a policy.
func (c *Catalog) DefaultFor(kind, literal string) *schema.Default {
	k := strings.ToUpper(kind)
	switch {
	case k == "VARCHAR" || k == "CHAR":
		return &schema.Default{Kind: schema.DefaultString, Value: ""}
	case IsInteger(k), schema.IsDecimal(k):
		return &schema.Default{Kind: schema.DefaultNumber, Value: "0"}
	case k == "DATE":
		return &schema.Default{Kind: schema.DefaultExpression, Value: "CURRENT_DATE"}
	case k == "TIME":
		return &schema.Default{Kind: schema.DefaultExpression, Value: "CURRENT_TIME"}
	case k == "TIMESTAMP":
		return &schema.Default{Kind: schema.DefaultExpression, Value: "CURRENT_TIMESTAMP"}
	}
	lit := strings.TrimSpace(literal)
	switch {
	case lit == "":
		return nil
	case strings.HasPrefix(lit, "'"):
		return &schema.Default{Kind: schema.DefaultString, Value: strings.Trim(lit, "'")}
	}
	if _, err := strconv.ParseFloat(lit, 64); err == nil {
		return &schema.Default{Kind: schema.DefaultNumber, Value: lit}
	}
	return &schema.Default{Kind: schema.DefaultExpression, Value: lit}
}

// CurationsFor returns the curation rules attached to fields of kind.
func (c *Catalog) CurationsFor(kind string) []tableconfig.CurationRule {
	k := strings.ToUpper(kind)
	switch {
	case IsInteger(k):
		return []tableconfig.CurationRule{{
			Name:  CurationStringToType,
			Input: TypeInteger,
			RunOn: []string{tableconfig.StageKafka, tableconfig.StageUnload},
		}}
	case k == "DATE":
		return []tableconfig.CurationRule{{
			Name:  CurationStringToDate,
			Input: DateInputFormat,
			RunOn: []string{tableconfig.StageUnload},
		}}
	}
	return nil
}

// JSONParameterName returns "int" for integer kinds and "string" otherwise.
func (c *Catalog) JSONParameterName(kind string) string {
	if IsInteger(kind) {
		return tableconfig.ParamInt
	}
	return tableconfig.ParamString
}

// Override applies a user override for a source kind.
func (c *Catalog) Override(kind, target string) {
	kind = strings.ToUpper(kind)
	c.Mappings[kind] = target
	if c.Overrides == nil {
		c.Overrides = make(map[string]string)
	}
	if c.defaults != nil {
		if def, ok := c.defaults[kind]; ok && def == target {
			delete(c.Overrides, kind)
			return
		}
	}
	c.Overrides[kind] = target
}

// RestoreDefault restores the built-in mapping for a source kind.
func (c *Catalog) RestoreDefault(kind string) {
	kind = strings.ToUpper(kind)
	if c.defaults == nil {
		return
	}
	if def, ok := c.defaults[kind]; ok {
		c.Mappings[kind] = def
	} else {
		delete(c.Mappings, kind)
	}
	delete(c.Overrides, kind)
}

// IsOverridden returns true if the kind differs from its built-in mapping.
func (c *Catalog) IsOverridden(kind string) bool {
	_, ok := c.Overrides[strings.ToUpper(kind)]
	return ok
}

// SortedKinds returns the mapped kinds sorted alphabetically.
func (c *Catalog) SortedKinds() []string {
	kinds := make([]string, 0, len(c.Mappings))
	for k := range c.Mappings {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// WriteYAML writes the catalog overrides to a YAML file.
func (c *Catalog) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling type catalog: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads an overrides file and applies it on top of the built-in
// catalog. Both the mappings and overrides sections are honoured; decimal
// kinds cannot be remapped.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type catalog file: %w", err)
	}
	var raw Catalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing type catalog: %w", err)
	}

	c := Default()
	for _, src := range []map[string]string{raw.Mappings, raw.Overrides} {
		for kind, target := range src {
			if schema.IsDecimal(kind) {
				return nil, fmt.Errorf("type catalog: %s is always mapped to decimal(p, s)", kind)
			}
			if strings.TrimSpace(target) == "" {
				return nil, fmt.Errorf("type catalog: empty target for %s", kind)
			}
			c.Override(kind, target)
		}
	}
	return c, nil
}
