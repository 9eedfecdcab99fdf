package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/llm"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
	"github.com/lucasnoah/hirefactory/internal/stage"
)

// Environment variables that override file settings.
const (
	EnvProvider = "LLM_PROVIDER"
	EnvDSN      = "HIREFACTORY_DB_DSN"
)

// FileName is the config file looked up in the working directory.
const FileName = "hirefactory.yaml"

// Load reads and parses a configuration from the given YAML file path, then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, then applies environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// SearchPaths lists the locations LoadDefault tries, in order.
func SearchPaths() []string {
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".hirefactory", "config.yaml"))
	}
	return paths
}

// LoadDefault loads the first config found in SearchPaths. When none exists
// it returns the built-in defaults with environment overrides applied, and
// an empty path.
func LoadDefault() (*Config, string, error) {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	return Default(), "", nil
}

// Default returns the built-in configuration with environment overrides applied.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvProvider)); v != "" {
		cfg.LLM.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDSN)); v != "" {
		cfg.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Database.Driver = db.DriverPostgres
		}
	}
}

// applyDefaults fills every unset field. Stage temperatures default to the
// per-stage values; missing stages get an entry of their own.
func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = llm.ProviderGroq
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = llm.DefaultModel(cfg.LLM.Provider)
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = llm.DefaultKeyEnv(cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout == "" {
		cfg.LLM.Timeout = llm.DefaultTimeout.String()
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = db.DriverSQLite
	}

	if cfg.Policies.TopK == 0 {
		cfg.Policies.TopK = 3
	}

	if cfg.Stages == nil {
		cfg.Stages = make(map[string]StageConfig, len(stage.Order))
	}
	for _, name := range stage.Order {
		sc := cfg.Stages[name]
		if sc.Temperature == nil {
			t := stage.DefaultTemperatures[name]
			sc.Temperature = &t
		}
		cfg.Stages[name] = sc
	}

	if cfg.Review.FallbackStatus == "" {
		cfg.Review.FallbackStatus = pipeline.StatusApproved
	}
	cfg.Review.FallbackStatus = strings.ToUpper(cfg.Review.FallbackStatus)
}

// Timeout parses llm.timeout, falling back to the default on a bad value.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return llm.DefaultTimeout
	}
	return d
}

// LLMOptions converts the llm section for llm.New.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider:  c.LLM.Provider,
		Model:     c.LLM.Model,
		BaseURL:   c.LLM.BaseURL,
		APIKeyEnv: c.LLM.APIKeyEnv,
		Timeout:   c.Timeout(),
	}
}

// Settings returns the engine settings for one stage, loading its prompt
// template from templates_dir or the built-in set.
func (c *Config) Settings(name string) (stage.Settings, error) {
	sc := c.Stages[name]
	s := stage.Settings{Model: sc.Model, Temperature: stage.DefaultTemperatures[name]}
	if sc.Temperature != nil {
		s.Temperature = *sc.Temperature
	}
	tmpl := sc.PromptTemplate
	if tmpl == "" {
		tmpl = stage.TemplateName(name)
	}
	text, err := prompt.Load(tmpl, c.TemplatesPath())
	if err != nil {
		return s, fmt.Errorf("load %s template: %w", name, err)
	}
	s.Template = text
	return s, nil
}

// DSN returns the data source for the configured driver. For sqlite an empty
// path resolves to ~/.hirefactory/recruitment.db.
func (c *Config) DSN() (string, error) {
	if c.Database.Driver == db.DriverPostgres {
		if c.Database.DSN == "" {
			return "", fmt.Errorf("database.dsn is required for driver %q", db.DriverPostgres)
		}
		return c.Database.DSN, nil
	}
	if c.Database.DSN != "" {
		return c.Database.DSN, nil
	}
	if c.Database.Path != "" {
		return expandHome(c.Database.Path), nil
	}
	return db.DefaultDBPath()
}

// Marshal renders the effective configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// TemplatesPath returns templates_dir with ~ expanded.
func (c *Config) TemplatesPath() string {
	if c.TemplatesDir == "" {
		return ""
	}
	return expandHome(c.TemplatesDir)
}

// ArchivePath returns archive_dir with ~ expanded, empty for the default location.
func (c *Config) ArchivePath() string {
	if c.ArchiveDir == "" {
		return ""
	}
	return expandHome(c.ArchiveDir)
}
