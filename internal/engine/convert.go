package engine

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/ddlconv/ddlconv/internal/compare"
	"github.com/ddlconv/ddlconv/internal/ddl"
	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/dictionary"
	"github.com/ddlconv/ddlconv/internal/logging"
	"github.com/ddlconv/ddlconv/internal/registry"
	"github.com/ddlconv/ddlconv/internal/report"
	"github.com/ddlconv/ddlconv/internal/schema"
	"github.com/ddlconv/ddlconv/internal/state"
	"github.com/ddlconv/ddlconv/internal/synth"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
)

// Output is the result of a conversion or generation.
type Output struct {
	Source     string                 `json:"source"`
	Table      *schema.Table          `json:"-"`
	Dictionary *dictionary.Dictionary `json:"-"`
	Document   tableconfig.Document   `json:"-"`
	Warnings   []diag.Warning         `json:"warnings,omitempty"`
	// Artifact paths relative to the output directory.
	CSVPath  string `json:"csv,omitempty"`
	JSONPath string `json:"json"`
}

// TableName is the extracted table name.
func (o *Output) TableName() string { return o.Table.Name }

// Columns is the number of extracted columns.
func (o *Output) Columns() int { return len(o.Table.Columns) }

// Convert extracts text, builds the automatic dictionary and synthesizes the
// configuration. Both artifacts are written to the output directory.
func (e *Engine) Convert(ctx context.Context, source, text string) (*Output, error) {
	out, err := e.convert(ctx, source, text)
	if err != nil {
		e.record(state.Entry{Operation: state.OpConvert, Source: source, Error: err.Error()})
		return nil, err
	}
	e.record(state.Entry{
		Operation: state.OpConvert,
		Source:    source,
		Table:     out.Table.Name,
		Artifacts: []string{out.CSVPath, out.JSONPath},
		Warnings:  len(out.Warnings),
	})
	return out, nil
}

func (e *Engine) convert(ctx context.Context, source, text string) (*Output, error) {
	extracted, err := ddl.ExtractWith(text, e.Catalog)
	if err != nil {
		return nil, err
	}
	table := extracted.Table
	dict := dictionary.FromSchema(table)

	res, err := synth.Synthesize(table, dict, synth.Options{Audit: e.auditPolicy(), Catalog: e.Catalog})
	if err != nil {
		return nil, err
	}

	out := &Output{
		Source:     source,
		Table:      table,
		Dictionary: dict,
		Document:   tableconfig.NewDocument(table.Name, res.Config),
		Warnings:   append(extracted.Warnings, res.Warnings...),
	}
	logging.Warnings(e.Logger, source, out.Warnings)

	var buf bytes.Buffer
	if err := dict.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("encoding dictionary: %w", err)
	}
	out.CSVPath = DictionaryFile(table.Name)
	if err := e.writeArtifact(out.CSVPath, buf.Bytes()); err != nil {
		return nil, err
	}
	if out.JSONPath, err = e.writeDocument(table.Name, out.Document); err != nil {
		return nil, err
	}

	e.Logger.Info("converted DDL", "source", source, "table", table.Name, "columns", len(table.Columns))
	e.autoPublish(ctx, out.Document, source)
	return out, nil
}

// ConvertFile converts a DDL file, or the single .txt file of a directory.
func (e *Engine) ConvertFile(ctx context.Context, path string) (*Output, error) {
	file, err := ResolveInput(path)
	if err != nil {
		return nil, err
	}
	text, err := ReadDDL(file)
	if err != nil {
		return nil, err
	}
	return e.Convert(ctx, filepath.Base(file), text)
}

// Reconciliation is the outcome of comparing a DDL against a prior
// configuration.
type Reconciliation struct {
	Result  *compare.Result
	Report  *report.ComparisonReport
	CSVPath string
}

// Reconcile compares text against the prior configuration document and
// writes the reconciled dictionary, removed rows included, as CSV.
func (e *Engine) Reconcile(_ context.Context, source, text string, prior []byte, priorName string) (*Reconciliation, error) {
	rec, err := e.reconcile(source, text, prior, priorName)
	if err != nil {
		e.record(state.Entry{Operation: state.OpCompare, Source: source, Error: err.Error()})
		return nil, err
	}
	e.record(state.Entry{
		Operation: state.OpCompare,
		Source:    source,
		Table:     rec.Result.Table,
		Artifacts: []string{rec.CSVPath},
		Warnings:  len(rec.Report.Warnings),
	})
	return rec, nil
}

func (e *Engine) reconcile(source, text string, prior []byte, priorName string) (*Reconciliation, error) {
	extracted, err := ddl.ExtractWith(text, e.Catalog)
	if err != nil {
		return nil, err
	}
	table := extracted.Table

	priorCfg, err := compare.LoadPrior(prior, table.Name)
	if err != nil {
		return nil, err
	}
	res, err := compare.Compare(table, priorCfg)
	if err != nil {
		return nil, err
	}
	logging.Warnings(e.Logger, source, extracted.Warnings)

	var buf bytes.Buffer
	if err := dictionary.WriteCSV(&buf, res.Report()); err != nil {
		return nil, fmt.Errorf("encoding comparison: %w", err)
	}
	csvPath := DictionaryFile(table.Name)
	if err := e.writeArtifact(csvPath, buf.Bytes()); err != nil {
		return nil, err
	}

	counts := res.Counts()
	e.Logger.Info("compared DDL with prior configuration",
		"source", source, "prior", priorName, "table", table.Name,
		"carried", counts.Carried, "new", counts.New, "removed", counts.Removed)

	return &Reconciliation{
		Result:  res,
		Report:  report.GenerateReport(res, priorName, extracted.Warnings),
		CSVPath: csvPath,
	}, nil
}

// Generate synthesizes the configuration of text from a curated dictionary.
// When prior is non-empty its audit fields are available to the inherit
// policy; inherit without any prior audit field falls back to the fixed set.
func (e *Engine) Generate(ctx context.Context, source, text string, dictCSV, prior []byte) (*Output, error) {
	out, err := e.generate(ctx, source, text, dictCSV, prior)
	if err != nil {
		e.record(state.Entry{Operation: state.OpGenerate, Source: source, Error: err.Error()})
		return nil, err
	}
	e.record(state.Entry{
		Operation: state.OpGenerate,
		Source:    source,
		Table:     out.Table.Name,
		Artifacts: []string{out.JSONPath},
		Warnings:  len(out.Warnings),
	})
	return out, nil
}

func (e *Engine) generate(ctx context.Context, source, text string, dictCSV, prior []byte) (*Output, error) {
	extracted, err := ddl.ExtractWith(text, e.Catalog)
	if err != nil {
		return nil, err
	}
	table := extracted.Table

	dict, err := dictionary.ReadCSV(bytes.NewReader(dictCSV), dictionary.ReadOptions{Table: table.Name})
	if err != nil {
		return nil, err
	}

	opts := synth.Options{Audit: e.auditPolicy(), Catalog: e.Catalog}
	if len(prior) > 0 {
		priorCfg, err := compare.LoadPrior(prior, table.Name)
		if err != nil {
			return nil, err
		}
		opts.Inherited = compare.AuditFields(priorCfg)
	}
	if opts.Audit == synth.AuditInherit && len(opts.Inherited) == 0 {
		opts.Audit = synth.AuditFixed
	}

	res, err := synth.Synthesize(table, dict, opts)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Source:     source,
		Table:      table,
		Dictionary: dict,
		Document:   tableconfig.NewDocument(table.Name, res.Config),
		Warnings:   append(extracted.Warnings, res.Warnings...),
	}
	logging.Warnings(e.Logger, source, out.Warnings)

	if out.JSONPath, err = e.writeDocument(table.Name, out.Document); err != nil {
		return nil, err
	}
	e.Logger.Info("generated configuration", "source", source, "table", table.Name, "fields", len(res.Config.Fields))
	e.autoPublish(ctx, out.Document, source)
	return out, nil
}

func (e *Engine) writeDocument(table string, doc tableconfig.Document) (string, error) {
	data, err := doc.EncodeJSON()
	if err != nil {
		return "", fmt.Errorf("encoding configuration: %w", err)
	}
	rel := ConfigFile(table)
	return rel, e.writeArtifact(rel, data)
}

func (e *Engine) autoPublish(ctx context.Context, doc tableconfig.Document, source string) {
	if e.Registry == nil || !e.Config.Registry.AutoPublish {
		return
	}
	if _, err := registry.Publish(ctx, e.Registry, doc, source); err != nil {
		e.Logger.Warn("auto-publish failed", "source", source, "error", err)
	}
}
