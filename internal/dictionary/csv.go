package dictionary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ddlconv/ddlconv/internal/diag"
)

// Column names of the tabular encoding, in header order.
const (
	ColTable               = "tabela"
	ColTableDescription    = "descricao_mf"
	ColSourceColumn        = "coluna_mf"
	ColTargetName          = "rename_to"
	ColSourceDescription   = "descricao_coluna_mf"
	ColOfficialDescription = "descricao_oficial"
	ColSourceType          = "tipo_original"
)

// Header is the header row of the tabular encoding.
var Header = []string{
	ColTable,
	ColTableDescription,
	ColSourceColumn,
	ColTargetName,
	ColSourceDescription,
	ColOfficialDescription,
	ColSourceType,
}

// Separator is the field delimiter of the tabular encoding.
const Separator = ';'

// ReadOptions controls validation of a tabular dictionary.
type ReadOptions struct {
	// Table, when set, must match the tabela field of every row.
	Table string
	// Strict requires every field but descricao_oficial to be filled.
	Strict bool
}

// ReadCSV decodes and validates a tabular dictionary. Line numbers in
// errors are 1-based with the header on line 1. Rows carrying the removal
// marker are skipped.
func ReadCSV(r io.Reader, opts ReadOptions) (*Dictionary, error) {
	rows, lines, err := readRows(r)
	if err != nil {
		return nil, err
	}

	var (
		entries []Entry
		kept    []int
	)
	for i, e := range rows {
		if e.Removed() {
			continue
		}
		if err := validateRow(e, lines[i], opts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
		kept = append(kept, lines[i])
	}
	if len(entries) == 0 {
		return nil, diag.Decodef("dictionary", 0, "no dictionary rows")
	}

	d, err := New(entries)
	if err != nil {
		var de *diag.Error
		if errors.As(err, &de) && de.Line > 0 {
			de.Line = kept[de.Line-1]
		}
		return nil, err
	}
	return d, nil
}

// ReadRows decodes every row, removed ones included, without validating
// field contents. It backs editing of dictionaries still being curated.
func ReadRows(r io.Reader) ([]Entry, error) {
	rows, _, err := readRows(r)
	return rows, err
}

func readRows(r io.Reader) ([]Entry, []int, error) {
	cr := csv.NewReader(r)
	cr.Comma = Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, diag.Decodef("dictionary", 1, "empty input")
	}
	if err != nil {
		return nil, nil, diag.Decode("dictionary", 1, err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		pos[h] = i
	}
	for _, required := range []string{ColSourceColumn, ColTargetName} {
		if _, ok := pos[required]; !ok {
			return nil, nil, diag.Decodef("dictionary", 1, "missing required column %q", required)
		}
	}

	var (
		entries []Entry
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, nil, diag.Decode("dictionary", pe.StartLine, err)
			}
			return nil, nil, diag.Decode("dictionary", 0, err)
		}
		line, _ := cr.FieldPos(0)
		field := func(name string) string {
			i, ok := pos[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		entries = append(entries, Entry{
			Table:               field(ColTable),
			TableDescription:    field(ColTableDescription),
			SourceColumn:        field(ColSourceColumn),
			TargetName:          field(ColTargetName),
			SourceDescription:   field(ColSourceDescription),
			OfficialDescription: field(ColOfficialDescription),
			SourceType:          field(ColSourceType),
		})
		lines = append(lines, line)
	}
	return entries, lines, nil
}

func validateRow(e Entry, line int, opts ReadOptions) error {
	subject := e.SourceColumn
	if subject == "" {
		subject = "N/A"
	}
	type field struct{ name, value string }
	required := []field{
		{ColSourceColumn, e.SourceColumn},
		{ColTargetName, e.TargetName},
	}
	if opts.Strict {
		required = append(required,
			field{ColTable, e.Table},
			field{ColTableDescription, e.TableDescription},
			field{ColSourceDescription, e.SourceDescription},
			field{ColSourceType, e.SourceType},
		)
	}
	for _, f := range required {
		if f.value == "" {
			return diag.Validationf(subject, line, "field %q is empty, fill in the dictionary before continuing", f.name)
		}
	}
	if opts.Table != "" && e.Table != "" && !strings.EqualFold(e.Table, opts.Table) {
		return diag.Validationf(subject, line, "row belongs to table %s, expected %s", e.Table, opts.Table)
	}
	return nil
}

// WriteCSV encodes rows with the header. Rows are written as given, so
// comparison reports may include removed entries.
func WriteCSV(w io.Writer, rows []Entry) error {
	cw := csv.NewWriter(w)
	cw.Comma = Separator
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing dictionary header: %w", err)
	}
	for _, e := range rows {
		rec := []string{
			e.Table,
			e.TableDescription,
			e.SourceColumn,
			e.TargetName,
			e.SourceDescription,
			e.OfficialDescription,
			e.SourceType,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing dictionary row %s: %w", e.SourceColumn, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV encodes the dictionary.
func (d *Dictionary) WriteCSV(w io.Writer) error {
	return WriteCSV(w, d.entries)
}
