// Package compare reconciles a freshly extracted table schema against the
// configuration previously generated for the same table.
package compare

import (
	"strings"

	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/dictionary"
	"github.com/ddlconv/ddlconv/internal/schema"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
	"github.com/ddlconv/ddlconv/internal/typemap"
)

// Status classifies a column against the prior configuration.
type Status string

const (
	Carried Status = "carried"
	New     Status = "new"
	Removed Status = "removed"
)

// Classification is the verdict for one column.
type Classification struct {
	Column      string `json:"column"`
	Status      Status `json:"status"`
	Type        string `json:"type,omitempty"`
	PriorType   string `json:"prior_type,omitempty"`
	TypeChanged bool   `json:"type_changed,omitempty"`
}

// Counts summarizes classifications.
type Counts struct {
	Carried     int `json:"carried"`
	New         int `json:"new"`
	Removed     int `json:"removed"`
	TypeChanged int `json:"type_changed"`
}

// Result is the reconciled dictionary plus the removal report.
type Result struct {
	Table           string
	Dictionary      *dictionary.Dictionary
	Removed         []dictionary.Entry
	Classifications []Classification
}

// Report returns every row for export: the reconciled dictionary followed
// by the removed columns.
func (r *Result) Report() []dictionary.Entry {
	rows := r.Dictionary.Entries()
	return append(rows, r.Removed...)
}

// Counts tallies the classifications.
func (r *Result) Counts() Counts {
	var c Counts
	for _, cl := range r.Classifications {
		switch cl.Status {
		case Carried:
			c.Carried++
		case New:
			c.New++
		case Removed:
			c.Removed++
		}
		if cl.TypeChanged {
			c.TypeChanged++
		}
	}
	return c
}

// Columns returns the column names with the given status, in report order.
func (r *Result) Columns(s Status) []string {
	var out []string
	for _, cl := range r.Classifications {
		if cl.Status == s {
			out = append(out, cl.Column)
		}
	}
	return out
}

type priorField struct {
	renameTo    string
	description string
	inputType   string
}

// Compare classifies every column of table against prior. Carried columns
// keep the prior target name and description but take their type from
// table; removed columns are reported but never enter the dictionary.
// Every prior field takes part in the lookup. The audit fields the
// pipeline appends are never reported as removed.
func Compare(table *schema.Table, prior *tableconfig.TableConfig) (*Result, error) {
	if table == nil {
		return nil, diag.Parsef("", "no table schema to compare")
	}
	if prior == nil {
		return nil, diag.NotFoundf(table.Name, "no prior configuration to compare against")
	}

	lookup := make(map[string]priorField, len(prior.Fields))
	var order []string
	for _, f := range prior.Fields {
		if _, dup := lookup[f.Name]; dup {
			continue
		}
		lookup[f.Name] = priorField{
			renameTo:    f.Metadata.RenameTo,
			description: f.Metadata.Description,
			inputType:   f.Metadata.InputType,
		}
		order = append(order, f.Name)
	}

	res := &Result{Table: table.Name}
	entries := make([]dictionary.Entry, 0, len(table.Columns))
	present := make(map[string]bool, len(table.Columns))

	for _, col := range table.Columns {
		present[col.Name] = true
		kind := col.Type.Kind
		e := dictionary.Entry{
			Table:            table.Name,
			TableDescription: table.Description,
			SourceColumn:     col.Name,
			SourceType:       kind,
		}
		p, ok := lookup[col.Name]
		if !ok {
			entries = append(entries, e)
			res.Classifications = append(res.Classifications, Classification{Column: col.Name, Status: New, Type: kind})
			continue
		}
		e.TargetName = p.renameTo
		e.SourceDescription = p.description
		e.OfficialDescription = p.description
		entries = append(entries, e)
		res.Classifications = append(res.Classifications, Classification{
			Column:      col.Name,
			Status:      Carried,
			Type:        kind,
			PriorType:   p.inputType,
			TypeChanged: p.inputType != "" && !strings.EqualFold(p.inputType, kind),
		})
	}

	for _, name := range order {
		if present[name] || tableconfig.IsPipelineAudit(name) {
			continue
		}
		p := lookup[name]
		inputType := p.inputType
		if inputType == "" {
			inputType = typemap.TypeString
		}
		res.Removed = append(res.Removed, dictionary.Entry{
			Table:               table.Name,
			TableDescription:    table.Description + dictionary.RemovedTableMarker,
			SourceColumn:        name + dictionary.RemovedColumnMarker,
			TargetName:          p.renameTo,
			SourceDescription:   dictionary.RemovedDescriptionMarker,
			OfficialDescription: p.description,
			SourceType:          inputType,
		})
		res.Classifications = append(res.Classifications, Classification{Column: name, Status: Removed, PriorType: p.inputType})
	}

	dict, err := dictionary.New(entries)
	if err != nil {
		return nil, err
	}
	res.Dictionary = dict
	return res, nil
}

// AuditFields returns the audit fields of prior, for synthesis with the
// inherit policy only; classification does not use it. A nil prior has none.
func AuditFields(prior *tableconfig.TableConfig) []tableconfig.FieldConfig {
	if prior == nil {
		return nil
	}
	return prior.AuditFields()
}

// LoadPrior decodes a prior configuration document and picks the entry for
// table.
func LoadPrior(data []byte, table string) (*tableconfig.TableConfig, error) {
	doc, err := tableconfig.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return doc.Table(table)
}
