// Package synth turns an extracted table schema and a rename dictionary into
// the pipeline configuration of the table.
package synth

import (
	"fmt"
	"strings"

	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/dictionary"
	"github.com/ddlconv/ddlconv/internal/schema"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
	"github.com/ddlconv/ddlconv/internal/typemap"
)

// AuditPolicy selects which audit fields close the field list.
type AuditPolicy string

const (
	// AuditFixed appends AUD_ENTTYP and AUD_APPLY_TIMESTAMP.
	AuditFixed AuditPolicy = "fixed"
	// AuditInherit appends Options.Inherited, usually taken from a prior
	// configuration of the same table.
	AuditInherit AuditPolicy = "inherit"
	// AuditNone appends nothing.
	AuditNone AuditPolicy = "none"
)

// ParseAuditPolicy validates a policy name. The empty string selects
// AuditFixed.
func ParseAuditPolicy(s string) (AuditPolicy, error) {
	switch p := AuditPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return AuditFixed, nil
	case AuditFixed, AuditInherit, AuditNone:
		return p, nil
	}
	return "", fmt.Errorf("unknown audit policy %q (want fixed, inherit or none)", s)
}

// Options controls synthesis.
type Options struct {
	Audit     AuditPolicy
	Inherited []tableconfig.FieldConfig
	Catalog   *typemap.Catalog
}

// Result is a synthesized configuration plus the soft conditions met on the
// way.
type Result struct {
	Config   *tableconfig.TableConfig
	Warnings []diag.Warning
}

// FixedAuditFields returns the two audit fields every pipeline table carries.
func FixedAuditFields() []tableconfig.FieldConfig {
	return []tableconfig.FieldConfig{
		{
			Name:     tableconfig.AuditEntryType,
			Type:     typemap.TypeString,
			Nullable: false,
			Metadata: tableconfig.Metadata{
				Description:       "Código que identifica no destino o evento ocorrido na tabela origem do db2mf",
				InputType:         typemap.TypeString,
				OutputType:        typemap.TypeString,
				RenameTo:          "co_aud_enttyp",
				JSONParameterName: tableconfig.ParamString,
			},
		},
		{
			Name:     tableconfig.AuditApplyTimestamp,
			Type:     typemap.TypeTimestamp,
			Nullable: false,
			Metadata: tableconfig.Metadata{
				Description:       "Timestamp indicando quando ocorreu atualização na tabela origem db2mf",
				InputType:         typemap.TypeString,
				OutputType:        typemap.TypeTimestamp,
				RenameTo:          "ts_aud_apply",
				JSONParameterName: tableconfig.ParamString,
			},
		},
	}
}

// Synthesize builds the configuration of table from dict. Fields follow the
// schema's column order; columns missing from dict are skipped with a
// warning. An entry consumed with an empty target name fails the whole call
// with a validation error naming the column.
func Synthesize(table *schema.Table, dict *dictionary.Dictionary, opts Options) (*Result, error) {
	if table == nil {
		return nil, diag.Parsef("", "no table schema to synthesize")
	}
	if dict == nil {
		return nil, diag.Validationf(table.Name, 0, "no dictionary supplied")
	}
	cat := opts.Catalog
	if cat == nil {
		cat = typemap.Default()
	}
	policy := opts.Audit
	if policy == "" {
		policy = AuditFixed
	}

	res := &Result{}
	cfg := tableconfig.New(table.PrimaryKey())
	used := make(map[string]bool, dict.Len())

	for _, col := range table.Columns {
		entry, ok := dict.Lookup(col.Name)
		if !ok {
			res.Warnings = append(res.Warnings, diag.Warning{
				Code:    diag.WarnColumnSkipped,
				Subject: col.Name,
				Message: "column not found in dictionary, skipping",
			})
			continue
		}
		used[col.Name] = true

		target := strings.TrimSpace(entry.TargetName)
		if target == "" {
			return nil, diag.Validationf(col.Name, 0, "rename_to is empty, fill in the dictionary before continuing")
		}

		normalized := cat.Normalize(col.Type)
		cfg.Fields = append(cfg.Fields, tableconfig.FieldConfig{
			Name:     col.Name,
			Type:     normalized,
			Nullable: col.Nullable,
			Metadata: tableconfig.Metadata{
				Description:       entry.OfficialDescription,
				InputType:         col.Type.Kind,
				OutputType:        normalized,
				RenameTo:          target,
				JSONParameterName: cat.JSONParameterName(col.Type.Kind),
				Curations:         cat.CurationsFor(col.Type.Kind),
			},
		})
	}

	for _, name := range dict.Columns() {
		if !used[name] && !tableconfig.IsPipelineAudit(name) {
			res.Warnings = append(res.Warnings, diag.Warning{
				Code:    diag.WarnUnknownColumn,
				Subject: name,
				Message: "dictionary entry does not match any column of " + table.Name,
			})
		}
	}

	switch policy {
	case AuditFixed:
		cfg.Fields = append(cfg.Fields, FixedAuditFields()...)
	case AuditInherit:
		for _, f := range opts.Inherited {
			if _, dup := cfg.Field(f.Name); dup {
				continue
			}
			cfg.Fields = append(cfg.Fields, f)
		}
	case AuditNone:
	default:
		return nil, fmt.Errorf("unknown audit policy %q", policy)
	}

	res.Config = cfg
	return res, nil
}
