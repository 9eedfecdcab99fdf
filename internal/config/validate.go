package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/llm"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
	"github.com/lucasnoah/hirefactory/internal/stage"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	known := false
	for _, p := range llm.Providers() {
		if cfg.LLM.Provider == p {
			known = true
		}
	}
	if !known {
		add("llm.provider", "unrecognized provider %q (want one of %s)", cfg.LLM.Provider, strings.Join(llm.Providers(), ", "))
	}
	if cfg.LLM.Timeout != "" {
		if d, err := time.ParseDuration(cfg.LLM.Timeout); err != nil {
			add("llm.timeout", "invalid duration %q", cfg.LLM.Timeout)
		} else if d <= 0 {
			add("llm.timeout", "must be positive")
		}
	}

	switch cfg.Database.Driver {
	case db.DriverSQLite:
	case db.DriverPostgres:
		if cfg.Database.DSN == "" {
			add("database.dsn", "is required for driver %q", db.DriverPostgres)
		}
	default:
		add("database.driver", "unsupported driver %q", cfg.Database.Driver)
	}

	if cfg.Policies.TopK < 0 {
		add("policies.top_k", "must not be negative")
	}

	stages := make(map[string]bool, len(stage.Order))
	for _, name := range stage.Order {
		stages[name] = true
	}
	names := make([]string, 0, len(cfg.Stages))
	for name := range cfg.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sc := cfg.Stages[name]
		prefix := "stages." + name
		if !stages[name] {
			add(prefix, "unknown stage (want one of %s)", strings.Join(stage.Order, ", "))
			continue
		}
		if sc.Temperature != nil && (*sc.Temperature < 0 || *sc.Temperature > 2) {
			add(prefix+".temperature", "must be between 0 and 2, got %v", *sc.Temperature)
		}
		if sc.PromptTemplate != "" {
			if _, err := prompt.Load(sc.PromptTemplate, cfg.TemplatesPath()); err != nil {
				add(prefix+".prompt_template", "%v", err)
			}
		}
	}

	if s := cfg.Review.FallbackStatus; s != pipeline.StatusApproved && s != pipeline.StatusRejected {
		add("review.fallback_status", "must be %s or %s, got %q", pipeline.StatusApproved, pipeline.StatusRejected, s)
	}

	return errs
}
