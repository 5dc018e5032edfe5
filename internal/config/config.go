package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file at the project root.
const FileName = "spendtrail.yaml"

// Config represents the top-level spendtrail.yaml configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Categorize CategorizeConfig `yaml:"categorize"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Auth       AuthConfig       `yaml:"auth"`
	Inbox      InboxConfig      `yaml:"inbox"`
	Log        LogConfig        `yaml:"log"`
	Git        GitConfig        `yaml:"git"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins,omitempty"`
}

// StorageConfig selects where transactions are persisted.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // file | postgres
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url,omitempty"`
}

// IngestConfig tunes row conversion.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// CategorizeConfig selects the category labeler.
type CategorizeConfig struct {
	Provider  string        `yaml:"provider"` // none | rules | gemini | chain
	Timeout   time.Duration `yaml:"timeout"`
	Model     string        `yaml:"model"`
	RPS       float64       `yaml:"rps"`
	RulesFile string        `yaml:"rules_file"`
	APIKey    string        `yaml:"-"`
}

// ArchiveConfig controls copies of raw uploads.
type ArchiveConfig struct {
	Driver string `yaml:"driver"` // none | local | gcs
	Dir    string `yaml:"dir,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
}

// AuthConfig maps bearer tokens to owner ids.
type AuthConfig struct {
	Tokens map[string]string `yaml:"tokens,omitempty"`
}

// InboxConfig schedules imports from the import/ directory while serving.
type InboxConfig struct {
	Schedule string `yaml:"schedule,omitempty"` // cron expression; empty disables
	Owner    string `yaml:"owner,omitempty"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a spendtrail.yaml file from disk. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			MaxUploadMB:     10,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:  "file",
			DataDir: "data",
		},
		Ingest: IngestConfig{
			Workers: 4,
		},
		Categorize: CategorizeConfig{
			Provider:  "rules",
			Timeout:   5 * time.Second,
			Model:     "gemini-2.5-flash",
			RPS:       5,
			RulesFile: "rules/categorization-rules.yaml",
		},
		Archive: ArchiveConfig{
			Driver: "none",
			Dir:    "uploads",
		},
		Log: LogConfig{
			Level: "info",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "spendtrail",
			AuthorEmail: "import@spendtrail.local",
		},
	}
}

// LoadDotEnv loads <root>/.env into the process environment. A missing
// file is not an error and existing variables are not overwritten.
func LoadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := getenv("SPENDTRAIL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("SPENDTRAIL_DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
	}
	if v := getenv("SPENDTRAIL_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.Categorize.APIKey = v
	}
	if v := getenv("SPENDTRAIL_GCS_BUCKET"); v != "" {
		c.Archive.Bucket = v
	}
}

// Validate reports every setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "file":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	switch c.Categorize.Provider {
	case "none", "rules":
	case "gemini", "chain":
		if c.Categorize.APIKey == "" {
			errs = append(errs, fmt.Errorf("GEMINI_API_KEY is required for categorize.provider %q", c.Categorize.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown categorize.provider %q", c.Categorize.Provider))
	}

	switch c.Archive.Driver {
	case "none", "local":
	case "gcs":
		if c.Archive.Bucket == "" {
			errs = append(errs, errors.New("archive.bucket is required for the gcs driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown archive.driver %q", c.Archive.Driver))
	}

	if c.Ingest.Workers < 1 {
		errs = append(errs, fmt.Errorf("ingest.workers must be at least 1, got %d", c.Ingest.Workers))
	}
	if c.Categorize.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("categorize.timeout must be positive, got %s", c.Categorize.Timeout))
	}
	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be at least 1, got %d", c.Server.MaxUploadMB))
	}
	for token, owner := range c.Auth.Tokens {
		if strings.TrimSpace(token) == "" || strings.TrimSpace(owner) == "" {
			errs = append(errs, errors.New("auth.tokens entries need a token and an owner"))
			break
		}
	}
	return errors.Join(errs...)
}

// Path resolves p against root unless it is already absolute.
func Path(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
