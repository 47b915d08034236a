// Package state persists the session history shown by the web UI.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ddlconv/ddlconv/internal/config"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "~/.ddlconv/history.yaml"
	// MaxEntries bounds the history kept on disk.
	MaxEntries = 200
)

// Operation identifies what produced a history entry.
type Operation string

const (
	OpConvert  Operation = "convert"
	OpCompare  Operation = "compare"
	OpGenerate Operation = "generate"
	OpPublish  Operation = "publish"
)

// Entry records one processed input.
type Entry struct {
	ID        string    `yaml:"id" json:"id"`
	Operation Operation `yaml:"operation" json:"operation"`
	Source    string    `yaml:"source" json:"source"`
	Table     string    `yaml:"table,omitempty" json:"table,omitempty"`
	Artifacts []string  `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	Warnings  int       `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Error     string    `yaml:"error,omitempty" json:"error,omitempty"`
	At        time.Time `yaml:"at" json:"at"`
}

// History is the ordered list of session entries, oldest first.
type History struct {
	mu      sync.Mutex
	path    string
	Entries []Entry `yaml:"entries"`
}

// Load reads the history from disk. A missing file yields an empty history.
func Load(path string) (*History, error) {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}
	h := &History{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	return h, nil
}

// New returns an in-memory history that is never written to disk.
func New() *History {
	return &History{}
}

// Add appends an entry and saves when the history is file-backed.
func (h *History) Add(e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.Entries = append(h.Entries, e)
	if len(h.Entries) > MaxEntries {
		h.Entries = h.Entries[len(h.Entries)-MaxEntries:]
	}
	return h.save()
}

// List returns a copy of the entries, newest first.
func (h *History) List() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.Entries))
	for i, e := range h.Entries {
		out[len(out)-1-i] = e
	}
	return out
}

// Clear drops every entry.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Entries = nil
	return h.save()
}

func (h *History) save() error {
	if h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	return os.WriteFile(h.path, data, 0o644)
}
