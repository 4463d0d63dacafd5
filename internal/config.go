package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nightsync/internal/apperr"
	"github.com/starford/nightsync/internal/evidence"
)

// DefaultMemoryExport is used when neither an export nor a database is set.
const DefaultMemoryExport = "tmp/memories.jsonl"

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Memory    MemoryConfig      `yaml:"memory"`
	Evidence  EvidenceConfig    `yaml:"evidence"`
	Repo      RepoConfig        `yaml:"repo"`
	Allowlist AllowlistConfig   `yaml:"allowlist"`
	Report    ReportConfig      `yaml:"report"`
	Specs     []string          `yaml:"specs"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Memory.Validate(); err != nil {
		return invalid("memory", err)
	}
	if err := c.Evidence.Validate(); err != nil {
		return invalid("evidence", err)
	}
	if err := validation.Validate(c.Specs, validation.Each(validation.By(nonBlank))); err != nil {
		return invalid("specs", err)
	}
	return nil
}

func invalid(section string, err error) error {
	return fmt.Errorf("%s: %v: %w", section, err, apperr.ErrInvalidConfig)
}

func nonBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// MemoryConfig selects the memory source: a JSONL export or the
// local-memory SQLite database, never both.
type MemoryConfig struct {
	Export string `yaml:"export"`
	DB     string `yaml:"db"`
}

// Validate validates the memory configuration.
func (c *MemoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DB, validation.When(c.Export != "",
			validation.Empty.Error("cannot be combined with an export file"))),
	)
}

// ExportPath returns the export to read, defaulting when no source is set.
func (c *MemoryConfig) ExportPath() string {
	if c.Export == "" && c.DB == "" {
		return DefaultMemoryExport
	}
	return c.Export
}

// EvidenceConfig locates the evidence tree and the citation prefix that
// memory text uses for it.
type EvidenceConfig struct {
	Root   string `yaml:"root"`
	Prefix string `yaml:"prefix"`
}

// Validate validates the evidence configuration.
func (c *EvidenceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Prefix, validation.Required),
	)
}

// RepoConfig holds the repository root; empty means the working directory.
type RepoConfig struct {
	Root string `yaml:"root"`
}

// AllowlistConfig points at the optional allowlist file.
type AllowlistConfig struct {
	Path string `yaml:"path"`
}

// ReportConfig controls JSON output.
type ReportConfig struct {
	JSONOut string `yaml:"json_out"`
	Pretty  bool   `yaml:"pretty"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Evidence: EvidenceConfig{
			Root:   evidence.DefaultRoot,
			Prefix: evidence.DefaultRoot,
		},
	}
}
