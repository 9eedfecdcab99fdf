package config

// Config is the top-level configuration parsed from hirefactory.yaml.
type Config struct {
	LLM          LLM                    `yaml:"llm"`
	Database     Database               `yaml:"database"`
	Policies     Policies               `yaml:"policies"`
	Stages       map[string]StageConfig `yaml:"stages"`
	Review       Review                 `yaml:"review"`
	TemplatesDir string                 `yaml:"templates_dir"`
	ArchiveDir   string                 `yaml:"archive_dir"`
}

// LLM selects the generation service.
type LLM struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Timeout   string `yaml:"timeout"`
}

// Database locates the record store. Path is used for sqlite, DSN for postgres.
type Database struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// Policies tunes policy retrieval.
type Policies struct {
	TopK int `yaml:"top_k"`
}

// StageConfig overrides one stage's generation settings.
type StageConfig struct {
	// Temperature is a pointer so an explicit 0 survives defaulting.
	Temperature    *float64 `yaml:"temperature"`
	Model          string   `yaml:"model"`
	PromptTemplate string   `yaml:"prompt_template"`
}

// Review configures the reviewer's fallback verdict.
type Review struct {
	FallbackStatus string `yaml:"fallback_status"`
}
