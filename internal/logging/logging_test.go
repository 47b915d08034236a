package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ddlconv/ddlconv/internal/diag"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupCreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := Setup("debug", dir)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Debug("hello")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "ddlconv-") {
		t.Fatalf("unexpected log files %v", entries)
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if !strings.Contains(string(data), "msg=hello") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")
	Warnings(logger, "cliente.txt", []diag.Warning{
		{Code: diag.WarnNoTableLabel, Subject: "DB2.CLIENTE", Message: "no table label"},
	})
	out := buf.String()
	for _, want := range []string{"level=WARN", "source=cliente.txt", "subject=DB2.CLIENTE", "code=missing_table_description"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
