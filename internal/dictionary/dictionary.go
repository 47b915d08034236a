// Package dictionary models the rename/description dictionary that drives
// configuration synthesis, and its semicolon-delimited tabular encoding.
package dictionary

import (
	"strings"

	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/schema"
)

// Removal markers written by the comparator on columns that no longer exist
// in the DDL.
const (
	RemovedColumnMarker      = " [REMOVIDA]"
	RemovedTableMarker       = " [REMOVIDA DO DDL]"
	RemovedDescriptionMarker = "[COLUNA REMOVIDA]"
)

// Entry is one dictionary row. SourceColumn is the key; Table,
// TableDescription and SourceDescription are context carried by the
// tabular encoding.
type Entry struct {
	Table               string `json:"tabela"`
	TableDescription    string `json:"descricao_mf"`
	SourceColumn        string `json:"coluna_mf"`
	TargetName          string `json:"rename_to"`
	SourceDescription   string `json:"descricao_coluna_mf"`
	OfficialDescription string `json:"descricao_oficial"`
	SourceType          string `json:"tipo_original"`
}

// Removed reports whether the entry carries the removal marker.
func (e Entry) Removed() bool {
	return strings.Contains(e.SourceColumn, strings.TrimSpace(RemovedColumnMarker))
}

// Dictionary is an ordered set of entries keyed by source column.
type Dictionary struct {
	entries []Entry
	index   map[string]int
}

// New builds a dictionary. Entries with an empty source column or a key
// already present are rejected with a validation error.
func New(entries []Entry) (*Dictionary, error) {
	d := &Dictionary{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if err := d.add(e); err != nil {
			err.Line = i + 1
			return nil, err
		}
	}
	return d, nil
}

func (d *Dictionary) add(e Entry) *diag.Error {
	key := strings.TrimSpace(e.SourceColumn)
	if key == "" {
		return diag.Validationf(e.Table, 0, "dictionary entry has an empty source column")
	}
	if _, dup := d.index[key]; dup {
		return diag.Validationf(key, 0, "duplicate dictionary entry")
	}
	e.SourceColumn = key
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, e)
	return nil
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

// Lookup returns the entry for a source column.
func (d *Dictionary) Lookup(column string) (Entry, bool) {
	i, ok := d.index[column]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// Entries returns a copy of the entries in insertion order.
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Columns returns the source column names in insertion order.
func (d *Dictionary) Columns() []string {
	names := make([]string, len(d.entries))
	for i, e := range d.entries {
		names[i] = e.SourceColumn
	}
	return names
}

// Incomplete returns the entries whose target name is still empty.
func (d *Dictionary) Incomplete() []Entry {
	var out []Entry
	for _, e := range d.entries {
		if strings.TrimSpace(e.TargetName) == "" {
			out = append(out, e)
		}
	}
	return out
}

// FromSchema builds the automatic identity dictionary: the target is the
// lower-cased source name and the official description is the column
// description, or "Campo <NAME>" when the DDL has none.
func FromSchema(t *schema.Table) *Dictionary {
	d := &Dictionary{
		entries: make([]Entry, 0, len(t.Columns)),
		index:   make(map[string]int, len(t.Columns)),
	}
	for _, c := range t.Columns {
		official := c.Description
		if official == "" {
			official = "Campo " + c.Name
		}
		// Column names are unique after extraction.
		_ = d.add(Entry{
			Table:               t.Name,
			TableDescription:    t.Description,
			SourceColumn:        c.Name,
			TargetName:          strings.ToLower(c.Name),
			SourceDescription:   c.Description,
			OfficialDescription: official,
			SourceType:          c.Type.Kind,
		})
	}
	return d
}
