package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirefactory/internal/config"
	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/llm"
	"github.com/lucasnoah/hirefactory/internal/orchestrator"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/policy"
	"github.com/lucasnoah/hirefactory/internal/stage"
)

func loadConfig() (*config.Config, string, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		return cfg, configFile, err
	}
	return config.LoadDefault()
}

// loadValidConfig loads the configuration and rejects it when invalid.
func loadValidConfig() (*config.Config, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		src := path
		if src == "" {
			src = "built-in defaults"
		}
		return nil, fmt.Errorf("invalid configuration (%s): %v (run 'hirefactory config validate')", src, errs[0])
	}
	return cfg, nil
}

// openStore opens and migrates the configured record store.
func openStore(cfg *config.Config) (*db.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	database, err := db.OpenDriver(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

func openArchive(cfg *config.Config) (*pipeline.Archive, error) {
	if dir := cfg.ArchivePath(); dir != "" {
		return pipeline.NewArchive(dir), nil
	}
	return pipeline.DefaultArchive()
}

// app is everything a pipeline run needs, wired from configuration.
type app struct {
	cfg      *config.Config
	db       *db.DB
	policies *policy.Lookup
	archive  *pipeline.Archive
	orch     *orchestrator.Orchestrator
}

func (a *app) Close() error {
	return a.db.Close()
}

// progressWriter returns stderr when --verbose is set.
func progressWriter(cmd *cobra.Command) io.Writer {
	if verbose {
		return cmd.ErrOrStderr()
	}
	return nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadValidConfig()
	if err != nil {
		return nil, err
	}
	gen, err := llm.New(cfg.LLMOptions())
	if err != nil {
		return nil, err
	}
	database, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: database}

	a.policies, err = policy.NewLookup(cmd.Context(), database, cfg.Policies.TopK)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.archive, err = openArchive(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	progress := progressWriter(cmd)
	engine := stage.NewEngine(gen, database, a.policies)
	engine.SetProgress(progress)
	for _, name := range stage.Order {
		s, err := cfg.Settings(name)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := engine.Configure(name, s); err != nil {
			a.Close()
			return nil, err
		}
	}
	if err := engine.SetReviewFallback(cfg.Review.FallbackStatus); err != nil {
		a.Close()
		return nil, err
	}

	a.orch = orchestrator.New(engine,
		orchestrator.WithProgress(progress),
		orchestrator.WithEvents(database),
		orchestrator.WithArchive(a.archive),
	)
	return a, nil
}
