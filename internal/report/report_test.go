package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ddlconv/ddlconv/internal/compare"
	"github.com/ddlconv/ddlconv/internal/ddl"
	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
)

func sampleResult(t *testing.T) *compare.Result {
	t.Helper()
	ext, err := ddl.Extract("CREATE TABLE APP.T (A INTEGER, B DATE) IN DB.TS")
	if err != nil {
		t.Fatal(err)
	}
	prior := tableconfig.New(nil)
	prior.Fields = []tableconfig.FieldConfig{
		{Name: "A", Metadata: tableconfig.Metadata{RenameTo: "a", InputType: "SMALLINT"}},
		{Name: "OLD", Metadata: tableconfig.Metadata{RenameTo: "old", InputType: "CHAR"}},
	}
	res, err := compare.Compare(ext.Table, prior)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestGenerateReport(t *testing.T) {
	r := GenerateReport(sampleResult(t), "t.json", nil)

	if r.Version != "1" || r.Table != "T" {
		t.Errorf("header = %q %q", r.Version, r.Table)
	}
	if r.Counts.Carried != 1 || r.Counts.New != 1 || r.Counts.Removed != 1 || r.Counts.TypeChanged != 1 {
		t.Errorf("counts = %+v", r.Counts)
	}
	if r.Complete {
		t.Error("report with new columns is not complete")
	}
	if len(r.NextSteps) != 3 {
		t.Fatalf("next steps = %v", r.NextSteps)
	}
	if !strings.Contains(r.NextSteps[0], "B") {
		t.Errorf("first step should name the new column: %q", r.NextSteps[0])
	}
	if !strings.Contains(r.NextSteps[1], "A (SMALLINT -> INTEGER)") {
		t.Errorf("second step should name the type change: %q", r.NextSteps[1])
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "t.json")

	report := GenerateReport(sampleResult(t), "t.json", []diag.Warning{{Code: diag.WarnNoTableLabel, Message: "no label"}})
	if err := WriteJSON(report, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if loaded.Table != "T" || loaded.Counts != report.Counts {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Classifications) != 3 || len(loaded.Warnings) != 1 {
		t.Errorf("loaded classifications/warnings = %d/%d", len(loaded.Classifications), len(loaded.Warnings))
	}
}

func TestFormatText(t *testing.T) {
	report := GenerateReport(sampleResult(t), "t.json", []diag.Warning{{Code: diag.WarnNoTableLabel, Subject: "APP.T", Message: "no label"}})
	text := FormatText(report)

	for _, want := range []string{
		"=== Comparison Report: T ===",
		"Prior:     t.json",
		"Carried: 1",
		"+ B",
		"- OLD",
		"(was SMALLINT)",
		"! APP.T: no label",
		"Dictionary complete: NO",
		"1. Fill rename_to",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := WriteText(GenerateReport(sampleResult(t), "", nil), path); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
}

func TestRenderContainsColumns(t *testing.T) {
	out := Render(GenerateReport(sampleResult(t), "", nil))
	if !strings.Contains(out, "OLD") || !strings.Contains(out, "Next Steps:") {
		t.Errorf("render output missing content:\n%s", out)
	}
}
