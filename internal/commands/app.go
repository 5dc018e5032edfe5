package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/spendtrail/spendtrail/internal/archive"
	"github.com/spendtrail/spendtrail/internal/category"
	"github.com/spendtrail/spendtrail/internal/config"
	"github.com/spendtrail/spendtrail/internal/ingest"
	"github.com/spendtrail/spendtrail/internal/logger"
	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/pipeline"
	"github.com/spendtrail/spendtrail/internal/sheet"
	"github.com/spendtrail/spendtrail/internal/store"
	"github.com/spendtrail/spendtrail/internal/store/filestore"
	"github.com/spendtrail/spendtrail/internal/store/postgres"
)

// app is a loaded project: config plus the components built from it.
type app struct {
	root     string
	cfg      *config.Config
	log      zerolog.Logger
	sheets   *sheet.Registry
	store    store.Store
	pipeline *pipeline.Pipeline
	closers  []func() error
}

// loadConfig reads <root>/.env and <root>/spendtrail.yaml, then applies
// environment overrides and validates the result.
func loadConfig(root string) (*config.Config, error) {
	if err := config.LoadDotEnv(root); err != nil {
		return nil, err
	}
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openApp builds the store, labeler chain, archiver and pipeline for root.
func openApp(ctx context.Context, root, logLevel string) (*app, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}

	a := &app{
		root:   root,
		cfg:    cfg,
		log:    logger.New(logLevel),
		sheets: sheet.DefaultRegistry(),
	}

	st, err := openStore(ctx, root, cfg)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	labeler, err := buildLabeler(ctx, root, cfg, a.log)
	if err != nil {
		a.Close()
		return nil, err
	}

	arch, err := buildArchiver(ctx, root, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := arch.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	resolver := category.NewResolver(labeler, cfg.Categorize.Timeout, a.log)
	a.pipeline = pipeline.New(pipeline.Options{
		Sheets:   a.sheets,
		Ingestor: ingest.NewIngestor(ingest.NewConverter(resolver), cfg.Ingest.Workers, a.log),
		Store:    st,
		Archiver: arch,
		LogRoot:  root,
	})
	return a, nil
}

// Close releases everything openApp acquired, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, root string, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := postgres.Open(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return st, nil
	default:
		return filestore.New(config.Path(root, cfg.Storage.DataDir)), nil
	}
}

func buildLabeler(ctx context.Context, root string, cfg *config.Config, log zerolog.Logger) (category.Labeler, error) {
	rules := func() (category.Labeler, error) {
		path := config.Path(root, cfg.Categorize.RulesFile)
		l, err := category.LoadRules(path)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", path).Msg("rules file missing; no keyword rules loaded")
			return category.Chain{}, nil
		}
		return l, err
	}
	gemini := func() (category.Labeler, error) {
		return category.NewGeminiLabeler(ctx, category.GeminiOptions{
			APIKey: cfg.Categorize.APIKey,
			Model:  cfg.Categorize.Model,
			RPS:    cfg.Categorize.RPS,
		})
	}

	switch cfg.Categorize.Provider {
	case "rules":
		return rules()
	case "gemini":
		return gemini()
	case "chain":
		r, err := rules()
		if err != nil {
			return nil, err
		}
		g, err := gemini()
		if err != nil {
			return nil, err
		}
		return category.Chain{r, g}, nil
	default:
		return category.Static(model.CategoryOther), nil
	}
}

func buildArchiver(ctx context.Context, root string, cfg *config.Config) (archive.Archiver, error) {
	switch cfg.Archive.Driver {
	case "local":
		return archive.NewLocal(config.Path(root, cfg.Archive.Dir)), nil
	case "gcs":
		g, err := archive.NewGCS(ctx, cfg.Archive.Bucket)
		if err != nil {
			return nil, fmt.Errorf("opening archive bucket: %w", err)
		}
		return g, nil
	default:
		return archive.Nop{}, nil
	}
}
