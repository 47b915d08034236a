package ddl

import (
	"strconv"
	"strings"

	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/schema"
	"github.com/ddlconv/ddlconv/internal/typemap"
)

// stream gives bounds-safe access to a token slice; reads past the end
// return the trailing EOF token.
type stream []token

func (s stream) at(i int) token {
	if i < 0 || i >= len(s) {
		return token{kind: tokEOF}
	}
	return s[i]
}

// qualified matches ident '.' ident at i.
func (s stream) qualified(i int) (first, second string, next int, ok bool) {
	a, dot, b := s.at(i), s.at(i+1), s.at(i+2)
	if a.kind != tokIdent || !dot.punct('.') || b.kind != tokIdent {
		return "", "", i, false
	}
	return a.text, b.text, i + 3, true
}

// closing returns the index of the parenthesis closing the one at open.
func (s stream) closing(open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch {
		case s[i].punct('('):
			depth++
		case s[i].punct(')'):
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// tableMatch is the identity captured by createTableRule.
type tableMatch struct {
	schema string
	name   string
	next   int // token after the table name
	line   int
}

func (m tableMatch) targets(schemaName, name string) bool {
	return sameName(m.schema, schemaName) && sameName(m.name, name)
}

// createTableRule finds the first CREATE TABLE schema.name statement.
func createTableRule(s stream) (tableMatch, error) {
	for i := range s {
		if !s[i].is("CREATE") || !s.at(i+1).is("TABLE") {
			continue
		}
		if sch, name, next, ok := s.qualified(i + 2); ok {
			return tableMatch{schema: sch, name: name, next: next, line: s[i].line}, nil
		}
	}
	return tableMatch{}, diag.Parsef("", "no CREATE TABLE schema.name statement found")
}

// columnBlock is the parenthesized column list plus its IN clause.
type columnBlock struct {
	entries    []stream
	database   string
	tablespace string
}

// columnBlockRule matches "(body) IN database.tablespace" right after the
// table name and splits the body at top-level commas.
func columnBlockRule(s stream, m tableMatch) (columnBlock, error) {
	subject := m.schema + "." + m.name
	open := m.next
	if !s.at(open).punct('(') {
		return columnBlock{}, diag.Parsef(subject, "column list not found after CREATE TABLE at line %d", m.line)
	}
	end, ok := s.closing(open)
	if !ok {
		return columnBlock{}, diag.Parsef(subject, "unbalanced parentheses in column list opened at line %d", s.at(open).line)
	}
	if !s.at(end + 1).is("IN") {
		return columnBlock{}, diag.Parsef(subject, "IN database.tablespace clause not found after column list at line %d", s.at(end).line)
	}
	db, ts, _, ok := s.qualified(end + 2)
	if !ok {
		return columnBlock{}, diag.Parsef(subject, "malformed IN clause at line %d", s.at(end+1).line)
	}

	block := columnBlock{database: db, tablespace: ts}
	depth := 0
	start := open + 1
	for i := open + 1; i < end; i++ {
		switch {
		case s[i].punct('('):
			depth++
		case s[i].punct(')'):
			depth--
		case s[i].punct(',') && depth == 0:
			block.entries = append(block.entries, s[start:i])
			start = i + 1
		}
	}
	block.entries = append(block.entries, s[start:end])
	return block, nil
}

// Leading words of table-level constraints inside the column list.
var constraintWords = map[string]bool{
	"PRIMARY":    true,
	"CONSTRAINT": true,
	"FOREIGN":    true,
	"UNIQUE":     true,
	"CHECK":      true,
}

// parseColumn matches one column-list entry against
// [seqno...] name type ['(' params ')'] {clause}. It reports false for
// entries that are not column definitions.
func parseColumn(e stream, cat *typemap.Catalog) (schema.Column, bool) {
	i := 0
	for e.at(i).kind == tokNumber {
		i++
	}
	name, typ := e.at(i), e.at(i+1)
	if name.kind != tokIdent || typ.kind != tokIdent {
		return schema.Column{}, false
	}
	if !name.quoted && constraintWords[strings.ToUpper(name.text)] {
		return schema.Column{}, false
	}
	i += 2

	col := schema.Column{
		Name:     name.text,
		Type:     schema.DataType{Kind: strings.ToUpper(typ.text)},
		Nullable: true,
	}

	if e.at(i).punct('(') {
		end, ok := e.closing(i)
		if !ok {
			return schema.Column{}, false
		}
		applyParams(&col.Type, params(e[i+1:end]))
		i = end + 1
	} else if schema.IsDecimal(col.Type.Kind) {
		// DB2 defaults an unparameterized DECIMAL to DECIMAL(5,0).
		applyParams(&col.Type, []int{5})
	}

	var (
		hasDefault bool
		literal    string
	)
	for i < len(e) {
		t := e.at(i)
		switch {
		case t.is("NOT") && e.at(i+1).is("NULL"):
			col.Nullable = false
			i += 2
		case t.is("WITH") && e.at(i+1).is("DEFAULT"):
			hasDefault = true
			literal, i = defaultLiteral(e, i+2)
		case t.is("DEFAULT"):
			hasDefault = true
			literal, i = defaultLiteral(e, i+1)
		default:
			i++
		}
	}
	if hasDefault {
		col.Default = cat.DefaultFor(col.Type.Kind, literal)
	}
	return col, true
}

// params collects the integer parameters of a type, ignoring anything else.
func params(s stream) []int {
	var out []int
	for _, t := range s {
		if t.kind != tokNumber {
			continue
		}
		if n, err := strconv.Atoi(t.text); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func applyParams(dt *schema.DataType, p []int) {
	if len(p) == 0 {
		return
	}
	switch {
	case schema.IsCharacter(dt.Kind):
		n := p[0]
		dt.Length = &n
	case schema.IsDecimal(dt.Kind):
		prec, scale := p[0], 0
		if len(p) > 1 {
			scale = p[1]
		}
		dt.Precision = &prec
		dt.Scale = &scale
	}
}

// Words that begin a column clause and therefore never form a default literal.
var clauseWords = map[string]bool{
	"NOT":        true,
	"NULL":       true,
	"WITH":       true,
	"DEFAULT":    true,
	"FOR":        true,
	"GENERATED":  true,
	"CONSTRAINT": true,
	"PRIMARY":    true,
	"UNIQUE":     true,
	"REFERENCES": true,
	"CHECK":      true,
	"IMPLICITLY": true,
	"INLINE":     true,
	"AS":         true,
	"COMPRESS":   true,
	"FIELDPROC":  true,
	"CCSID":      true,
	"SECURITY":   true,
	"ROW":        true,
	"BIT":        true,
	"MIXED":      true,
	"SBCS":       true,
	"DATA":       true,
}

// defaultLiteral reads an optional default value at i and returns it with
// the index of the following token.
func defaultLiteral(e stream, i int) (string, int) {
	t := e.at(i)
	switch {
	case t.kind == tokString:
		return "'" + t.text + "'", i + 1
	case t.kind == tokNumber:
		return t.text, i + 1
	case (t.punct('-') || t.punct('+')) && e.at(i+1).kind == tokNumber:
		return t.text + e.at(i+1).text, i + 2
	case t.is("NULL"):
		return "", i + 1
	case t.is("CURRENT") && e.at(i+1).kind == tokIdent:
		return "CURRENT " + strings.ToUpper(e.at(i+1).text), i + 2
	case t.kind == tokIdent && !clauseWords[strings.ToUpper(t.text)]:
		return t.text, i + 1
	}
	return "", i
}

// tableLabelRule finds LABEL ON TABLE schema.name IS 'text'.
func tableLabelRule(s stream, m tableMatch) (string, bool) {
	for i := range s {
		if !s[i].is("LABEL") || !s.at(i+1).is("ON") || !s.at(i+2).is("TABLE") {
			continue
		}
		sch, name, next, ok := s.qualified(i + 3)
		if !ok || !m.targets(sch, name) {
			continue
		}
		if s.at(next).is("IS") && s.at(next+1).kind == tokString {
			return strings.TrimSpace(s.at(next + 1).text), true
		}
	}
	return "", false
}

// columnLabelRule collects column descriptions from the first
// LABEL ON schema.name (col IS 'text', ...) block and from every
// LABEL ON COLUMN schema.name.col IS 'text' statement. Keys are upper-cased.
func columnLabelRule(s stream, m tableMatch) (map[string]string, bool) {
	labels := make(map[string]string)
	found, blockSeen := false, false
	for i := range s {
		if !s[i].is("LABEL") || !s.at(i+1).is("ON") {
			continue
		}
		switch {
		case s.at(i + 2).is("COLUMN"):
			if col, text, ok := columnLabel(s, i+3, m); ok {
				if _, dup := labels[col]; !dup {
					labels[col] = text
				}
				found = true
			}
		case !blockSeen:
			sch, name, next, ok := s.qualified(i + 2)
			if !ok || !m.targets(sch, name) || !s.at(next).punct('(') {
				continue
			}
			entries, ok := labelBlock(s, next)
			if !ok {
				continue
			}
			blockSeen, found = true, true
			for col, text := range entries {
				labels[col] = text
			}
		}
	}
	return labels, found
}

// columnLabel matches schema.name.col IS 'text' at i.
func columnLabel(s stream, i int, m tableMatch) (string, string, bool) {
	sch, name, next, ok := s.qualified(i)
	if !ok || !m.targets(sch, name) || !s.at(next).punct('.') {
		return "", "", false
	}
	col := s.at(next + 1)
	if col.kind != tokIdent || !s.at(next+2).is("IS") || s.at(next+3).kind != tokString {
		return "", "", false
	}
	return strings.ToUpper(col.text), strings.TrimSpace(s.at(next + 3).text), true
}

// labelBlock parses the entries between the parenthesis at open and its
// closing partner. Tokens that do not form "name IS 'text'" are skipped.
func labelBlock(s stream, open int) (map[string]string, bool) {
	end, ok := s.closing(open)
	if !ok {
		return nil, false
	}
	out := make(map[string]string)
	for i := open + 1; i < end; {
		t := s[i]
		if t.kind == tokIdent && s.at(i+1).is("IS") && s.at(i+2).kind == tokString {
			key := strings.ToUpper(t.text)
			if _, dup := out[key]; !dup {
				out[key] = strings.TrimSpace(s.at(i + 2).text)
			}
			i += 3
			continue
		}
		i++
	}
	return out, true
}

// uniqueIndexRule collects every CREATE UNIQUE INDEX s.idx ON schema.name (...)
// in textual order.
func uniqueIndexRule(s stream, m tableMatch) []schema.UniqueIndex {
	var out []schema.UniqueIndex
	for i := range s {
		if !s[i].is("CREATE") || !s.at(i+1).is("UNIQUE") || !s.at(i+2).is("INDEX") {
			continue
		}
		isch, iname, next, ok := s.qualified(i + 3)
		if !ok || !s.at(next).is("ON") {
			continue
		}
		sch, name, open, ok := s.qualified(next + 1)
		if !ok || !m.targets(sch, name) || !s.at(open).punct('(') {
			continue
		}
		end, ok := s.closing(open)
		if !ok {
			continue
		}
		idx := schema.UniqueIndex{SchemaName: isch, Name: iname, Columns: []string{}}
		for j := open + 1; j < end; j++ {
			t := s[j]
			if t.kind != tokIdent || t.is("ASC") || t.is("DESC") {
				continue
			}
			idx.Columns = append(idx.Columns, t.text)
		}
		out = append(out, idx)
	}
	return out
}
