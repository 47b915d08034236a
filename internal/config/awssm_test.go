package config

import (
	"testing"
)

func TestSecretField(t *testing.T) {
	val, err := secretField(`{"dsn": "postgres://u:p@db/ddlconv", "port": 5432}`, "ddlconv/registry", "dsn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "postgres://u:p@db/ddlconv" {
		t.Errorf("got %q", val)
	}
}

func TestSecretField_Errors(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		key    string
	}{
		{"not json", "plain", "dsn"},
		{"missing key", `{"uri": "x"}`, "dsn"},
		{"not a string", `{"port": 5432}`, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := secretField(tt.secret, "s", tt.key); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestResolveValue_AWSSM_Pattern(t *testing.T) {
	val, err := ResolveValue("plain-text-value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "plain-text-value" {
		t.Errorf("plain values should pass through, got %q", val)
	}
}
