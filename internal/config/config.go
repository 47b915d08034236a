package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.ddlconv/ddlconv.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Output   OutputConfig   `yaml:"output"`
	Audit    AuditConfig    `yaml:"audit,omitempty"`
	TypeMap  TypeMapConfig  `yaml:"typemap,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
	Publish  PublishConfig  `yaml:"publish,omitempty"`
	Logging  LogConfig      `yaml:"logging,omitempty"`
}

// OutputConfig defines where artifacts are written.
type OutputConfig struct {
	Directory       string `yaml:"directory"`                  // CSV under dicionarios/, JSON under json/
	UploadDirectory string `yaml:"upload_directory,omitempty"` // default ./cache/uploads
}

// DictionaryDir is the directory holding CSV dictionaries.
func (o OutputConfig) DictionaryDir() string { return filepath.Join(o.Directory, "dicionarios") }

// JSONDir is the directory holding configuration documents.
func (o OutputConfig) JSONDir() string { return filepath.Join(o.Directory, "json") }

// AuditConfig selects the audit field policy.
type AuditConfig struct {
	Policy string `yaml:"policy,omitempty"` // fixed, inherit or none
}

// TypeMapConfig points at optional type catalog overrides.
type TypeMapConfig struct {
	OverridesFile string `yaml:"overrides_file,omitempty"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Port              int      `yaml:"port,omitempty"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes,omitempty"`
	AllowedExtensions []string `yaml:"allowed_extensions,omitempty"`
}

// RegistryConfig defines where published configurations are stored.
type RegistryConfig struct {
	Backend     string `yaml:"backend,omitempty"` // file, postgres or mongodb
	Directory   string `yaml:"directory,omitempty"`
	DSN         string `yaml:"dsn,omitempty"`
	URI         string `yaml:"uri,omitempty"`
	Database    string `yaml:"database,omitempty"`
	AutoPublish bool   `yaml:"auto_publish,omitempty"`
}

// PublishConfig defines the S3 destination for artifacts.
type PublishConfig struct {
	S3Bucket string `yaml:"s3_bucket,omitempty"`
	S3Prefix string `yaml:"s3_prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.ddlconv/logs/
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{Version: CurrentVersion}
	c.applyDefaults()
	return c
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default
// otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Audit.Policy {
	case "fixed", "inherit", "none":
	default:
		return fmt.Errorf("audit.policy must be fixed, inherit or none, got %q", c.Audit.Policy)
	}
	switch c.Registry.Backend {
	case "file", "memory":
	case "postgres":
		if c.Registry.DSN == "" {
			return fmt.Errorf("registry.dsn is required for the postgres backend")
		}
	case "mongodb":
		if c.Registry.URI == "" {
			return fmt.Errorf("registry.uri is required for the mongodb backend")
		}
	default:
		return fmt.Errorf("registry.backend must be file, memory, postgres or mongodb, got %q", c.Registry.Backend)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Output.Directory == "" {
		c.Output.Directory = "./cache/output"
	}
	c.Output.Directory = ExpandHome(c.Output.Directory)
	if c.Output.UploadDirectory == "" {
		c.Output.UploadDirectory = "./cache/uploads"
	}
	c.Output.UploadDirectory = ExpandHome(c.Output.UploadDirectory)
	if c.Audit.Policy == "" {
		c.Audit.Policy = "fixed"
	}
	c.Audit.Policy = strings.ToLower(c.Audit.Policy)
	c.TypeMap.OverridesFile = ExpandHome(c.TypeMap.OverridesFile)
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 16 << 20
	}
	if len(c.Server.AllowedExtensions) == 0 {
		c.Server.AllowedExtensions = []string{"txt", "ddl"}
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = "file"
	}
	if c.Registry.Directory == "" {
		c.Registry.Directory = "./cache/registry"
	}
	c.Registry.Directory = ExpandHome(c.Registry.Directory)
	if c.Registry.Database == "" {
		c.Registry.Database = "ddlconv"
	}
	if c.Publish.S3Prefix == "" {
		c.Publish.S3Prefix = "ddlconv/"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = "~/.ddlconv/logs/"
	}
	c.Logging.Directory = ExpandHome(c.Logging.Directory)
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Registry.DSN, err = ResolveValue(c.Registry.DSN)
	if err != nil {
		return fmt.Errorf("registry dsn: %w", err)
	}
	c.Registry.URI, err = ResolveValue(c.Registry.URI)
	if err != nil {
		return fmt.Errorf("registry uri: %w", err)
	}
	c.Publish.S3Bucket, err = ResolveValue(c.Publish.S3Bucket)
	if err != nil {
		return fmt.Errorf("publish bucket: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value. A reference
// may be embedded in a longer string, e.g. a DSN with an inlined password.
func ResolveValue(val string) (string, error) {
	var firstErr error
	out := secretPattern.ReplaceAllStringFunc(val, func(m string) string {
		if firstErr != nil {
			return m
		}
		parts := secretPattern.FindStringSubmatch(m)
		v, err := resolveRef(parts[1], parts[2])
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolveRef(provider, ref string) (string, error) {
	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
