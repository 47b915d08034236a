// Package engine owns a conversion session: configuration, type catalog,
// artifact output, background jobs, history and publishing. The CLI and the
// HTTP API are thin layers over it.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ddlconv/ddlconv/internal/aws"
	"github.com/ddlconv/ddlconv/internal/config"
	"github.com/ddlconv/ddlconv/internal/dedup"
	"github.com/ddlconv/ddlconv/internal/diag"
	"github.com/ddlconv/ddlconv/internal/logging"
	"github.com/ddlconv/ddlconv/internal/registry"
	"github.com/ddlconv/ddlconv/internal/state"
	"github.com/ddlconv/ddlconv/internal/synth"
	"github.com/ddlconv/ddlconv/internal/typemap"
)

// Artifact subdirectories of the output directory.
const (
	DictionarySubdir = "dicionarios"
	ConfigSubdir     = "json"
	historyFile      = "history.yaml"
)

// Engine is the conversion engine shared by all interfaces.
type Engine struct {
	Config  *config.Config
	Catalog *typemap.Catalog
	Logger  *slog.Logger

	// Optional publish destinations. Nil disables them.
	Registry registry.Store
	Uploader *aws.ArtifactUploader

	history *state.History
	seen    *dedup.Store

	mu        sync.Mutex
	jobs      map[string]*jobState
	jobSeq    int
	observers []func(Progress)

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New creates an Engine. A nil cfg uses config.Default and a nil logger
// discards output.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if _, err := synth.ParseAuditPolicy(cfg.Audit.Policy); err != nil {
		return nil, err
	}

	cat := typemap.Default()
	if cfg.TypeMap.OverridesFile != "" {
		loaded, err := typemap.LoadYAML(cfg.TypeMap.OverridesFile)
		if err != nil {
			return nil, fmt.Errorf("loading type overrides: %w", err)
		}
		cat = loaded
	}

	for _, dir := range []string{cfg.Output.Directory, cfg.Output.UploadDirectory} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	hist, err := state.Load(filepath.Join(cfg.Output.Directory, historyFile))
	if err != nil {
		return nil, err
	}

	return &Engine{
		Config:  cfg,
		Catalog: cat,
		Logger:  logger,
		history: hist,
		seen:    dedup.NewStore(),
		jobs:    make(map[string]*jobState),
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the registry connection, if any.
func (e *Engine) Close() error {
	if e.Registry != nil {
		return e.Registry.Close()
	}
	return nil
}

// History returns the session history, newest first.
func (e *Engine) History() []state.Entry {
	return e.history.List()
}

func (e *Engine) record(entry state.Entry) {
	if err := e.history.Add(entry); err != nil {
		e.Logger.Warn("could not save history", "error", err)
	}
}

func (e *Engine) auditPolicy() synth.AuditPolicy {
	p, _ := synth.ParseAuditPolicy(e.Config.Audit.Policy)
	return p
}

// DictionaryFile is the artifact path of a table's dictionary, relative to
// the output directory.
func DictionaryFile(table string) string {
	return filepath.Join(DictionarySubdir, strings.ToUpper(table)+".csv")
}

// ConfigFile is the artifact path of a table's configuration, relative to
// the output directory.
func ConfigFile(table string) string {
	return filepath.Join(ConfigSubdir, strings.ToLower(table)+".json")
}

// ReadDDL reads a DDL file. Input that is not valid UTF-8 is decoded as
// Windows-1252, the usual encoding of mainframe exports.
func ReadDDL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", diag.NotFoundf(path, "DDL file not found")
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return DecodeText(data)
}

// DecodeText converts raw DDL bytes to text and strips a UTF-8 BOM.
func DecodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", diag.Decode("ddl", 0, err)
	}
	return string(out), nil
}

// ResolveInput accepts a DDL file or a directory holding exactly one .txt
// file and returns the file to convert.
func ResolveInput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", diag.NotFoundf(path, "input not found")
		}
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	matches, err := filepath.Glob(filepath.Join(path, "*.txt"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", diag.NotFoundf(path, "no .txt DDL file in directory")
	case 1:
		return matches[0], nil
	default:
		return "", diag.Validationf(path, 0, "directory holds %d .txt files, convert them one at a time", len(matches))
	}
}
