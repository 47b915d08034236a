// Package ddl extracts a table schema from DB2 mainframe DDL text.
//
// The text is tokenized once and then scanned by independent rules: the
// CREATE TABLE identity, its column list, the LABEL ON descriptions and the
// unique indexes. Description and index statements may appear anywhere in
// the input relative to the CREATE TABLE statement.
package ddl

import (
	"fmt"
	"strings"

	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/schema"
	"github.com/ddlconv/ddlconv/internal/typemap"
)

// Result is a successful extraction.
type Result struct {
	Table    *schema.Table
	Warnings []diag.Warning
}

// Extract parses text with the built-in type catalog.
func Extract(text string) (*Result, error) {
	return ExtractWith(text, typemap.Default())
}

// ExtractWith parses text, taking column default policies from cat. It
// returns a diag parse error when the CREATE TABLE statement or its column
// list cannot be matched; missing descriptions only produce warnings.
func ExtractWith(text string, cat *typemap.Catalog) (*Result, error) {
	s := stream(tokenize(text))

	m, err := createTableRule(s)
	if err != nil {
		return nil, err
	}
	block, err := columnBlockRule(s, m)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	subject := m.schema + "." + m.name
	warn := func(code, format string, args ...any) {
		res.Warnings = append(res.Warnings, diag.Warning{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)})
	}

	t := &schema.Table{
		Name:       m.name,
		SchemaName: m.schema,
		Database:   block.database,
		Tablespace: block.tablespace,
		Columns:    []schema.Column{},
	}

	seen := make(map[string]bool)
	for _, e := range block.entries {
		col, ok := parseColumn(e, cat)
		if !ok {
			continue
		}
		key := strings.ToUpper(col.Name)
		if seen[key] {
			warn(diag.WarnDuplicateColumn, "column %s declared more than once, keeping the first declaration", col.Name)
			continue
		}
		seen[key] = true
		t.Columns = append(t.Columns, col)
	}
	if len(t.Columns) == 0 {
		return nil, diag.Parsef(subject, "column list contains no column definitions")
	}

	if desc, ok := tableLabelRule(s, m); ok {
		t.Description = desc
	} else {
		warn(diag.WarnNoTableLabel, "no LABEL ON TABLE statement found")
	}

	if labels, ok := columnLabelRule(s, m); ok {
		for i := range t.Columns {
			t.Columns[i].Description = labels[strings.ToUpper(t.Columns[i].Name)]
		}
	} else {
		warn(diag.WarnNoColumnLabels, "no column descriptions found")
	}

	t.UniqueIndexes = uniqueIndexRule(s, m)
	for _, idx := range t.UniqueIndexes {
		for _, c := range idx.Columns {
			if !seen[strings.ToUpper(c)] {
				warn(diag.WarnIndexColumn, "index %s.%s references unknown column %s", idx.SchemaName, idx.Name, c)
			}
		}
	}

	res.Table = t
	return res, nil
}
