package tableconfig

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ddlconv/ddlconv/internal/diag"
)

func sampleConfig() *TableConfig {
	cfg := New([]string{"CD_CLIENTE"})
	cfg.Fields = []FieldConfig{
		{
			Name:     "CD_CLIENTE",
			Type:     "integer",
			Nullable: false,
			Metadata: Metadata{
				Description:       "Código do cliente & filial",
				InputType:         "INTEGER",
				OutputType:        "integer",
				RenameTo:          "id_cliente",
				JSONParameterName: ParamInt,
				Curations: []CurationRule{
					{Name: "StringToType", Input: "integer", RunOn: []string{StageKafka, StageUnload}},
				},
			},
		},
		{
			Name:     "AUD_ENTTYP",
			Type:     "string",
			Metadata: Metadata{InputType: "string", OutputType: "string", RenameTo: "co_aud_enttyp", JSONParameterName: ParamString},
		},
	}
	return cfg
}

func TestNewSetsContractConstants(t *testing.T) {
	cfg := New(nil)
	if cfg.Delimiter != "|" || cfg.Format != "csv" {
		t.Errorf("constants = %q %q", cfg.Delimiter, cfg.Format)
	}
	if cfg.TableKey == nil || len(cfg.TableKey) != 0 {
		t.Errorf("table key = %#v, want empty non-nil", cfg.TableKey)
	}
}

func TestEncodeJSON(t *testing.T) {
	data, err := NewDocument("TBCLIENTE", sampleConfig()).EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"{\n    \"TBCLIENTE\": {\n        \"delimiter\": \"|\",",
		`"structure": {`,
		`"type": "struct"`,
		`"tableKey": [`,
		`"renameTo": "id_cliente"`,
		`"runOn": [`,
		"Código do cliente & filial",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, `"curations"`) != 1 {
		t.Errorf("curations should be omitted when empty:\n%s", out)
	}
}

func TestDecodeJSONRoundTrip(t *testing.T) {
	doc := NewDocument("TBCLIENTE", sampleConfig())
	data, err := doc.EncodeJSON()
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if !reflect.DeepEqual(back["TBCLIENTE"], doc["TBCLIENTE"]) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", back["TBCLIENTE"], doc["TBCLIENTE"])
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{"},
		{"empty object", "{}"},
		{"wrong structure type", `{"T": {"structure": {"type": "array", "fields": []}}}`},
		{"field without name", `{"T": {"structure": {"type": "struct", "fields": [{"type": "string"}]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.input))
			if !errors.Is(err, diag.ErrDecode) {
				t.Errorf("expected decode error, got %v", err)
			}
		})
	}
}

func TestDocumentTable(t *testing.T) {
	doc := Document{"TBCLIENTE": sampleConfig(), "TBCONTA": New(nil)}

	cfg, err := doc.Table("tbcliente")
	if err != nil || cfg != doc["TBCLIENTE"] {
		t.Errorf("case-insensitive lookup failed: %v", err)
	}
	if _, err := doc.Table("TBOUTRA"); !errors.Is(err, diag.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	single := NewDocument("TBCONTA", New(nil))
	if _, err := single.Table("RENAMED"); err != nil {
		t.Errorf("single-table documents match any name: %v", err)
	}
	if got := doc.Tables(); !reflect.DeepEqual(got, []string{"TBCLIENTE", "TBCONTA"}) {
		t.Errorf("tables = %v", got)
	}
}

func TestAuditFieldsAreCopies(t *testing.T) {
	cfg := sampleConfig()
	cfg.Fields[1].Metadata.Curations = []CurationRule{{Name: "X", RunOn: []string{StageKafka}}}

	audit := cfg.AuditFields()
	if len(audit) != 1 || audit[0].Name != "AUD_ENTTYP" {
		t.Fatalf("audit = %+v", audit)
	}
	audit[0].Metadata.Curations[0].RunOn[0] = "changed"
	if cfg.Fields[1].Metadata.Curations[0].RunOn[0] != StageKafka {
		t.Error("AuditFields must deep copy curations")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	doc := NewDocument("TBCLIENTE", sampleConfig())
	data, err := doc.EncodeYAML()
	if err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	if !strings.Contains(string(data), "renameTo: id_cliente") {
		t.Errorf("unexpected yaml:\n%s", data)
	}
	back, err := DecodeYAML(data)
	if err != nil {
		t.Fatalf("DecodeYAML: %v", err)
	}
	if !reflect.DeepEqual(back["TBCLIENTE"], doc["TBCLIENTE"]) {
		t.Errorf("yaml round trip mismatch")
	}
}

func TestWriteAndLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "json", "tbcliente.json")

	if err := NewDocument("TBCLIENTE", sampleConfig()).WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	doc, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if _, err := doc.Table("TBCLIENTE"); err != nil {
		t.Error(err)
	}

	if _, err := LoadJSON(filepath.Join(dir, "missing.json")); !errors.Is(err, diag.ErrNotFound) {
		t.Errorf("expected not found for missing file, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJSON(bad); !errors.Is(err, diag.ErrDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestIsPipelineAudit(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{AuditEntryType, true},
		{AuditApplyTimestamp, true},
		{"AUD_USER", false},
		{"aud_enttyp", false},
		{"CD_CLIENTE", false},
	}
	for _, tt := range tests {
		if got := IsPipelineAudit(tt.name); got != tt.want {
			t.Errorf("IsPipelineAudit(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
