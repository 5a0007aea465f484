package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/utils"
)

// Config holds everything a replay run or the status server needs
type Config struct {
	// SourceToken reads the acting identity's activity
	SourceToken string `yaml:"source_token" env:"SOURCE_GITHUB_TOKEN"`
	// DestToken writes the destination repository
	DestToken     string `yaml:"dest_token" env:"DEST_GITHUB_TOKEN"`
	SyncRepoOwner string `yaml:"sync_repo_owner" env:"SYNC_REPO_OWNER"`
	SyncRepoName  string `yaml:"sync_repo_name" env:"SYNC_REPO_NAME"`

	Author AuthorConfig `yaml:"author" envPrefix:"AUTHOR_"`
	GitHub GitHubConfig `yaml:"github"`
	Sync   SyncConfig   `yaml:"sync"`
	Ledger LedgerConfig `yaml:"ledger"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// AuthorConfig is the identity stamped on synthetic commits
type AuthorConfig struct {
	Name  string `yaml:"name" env:"NAME"`
	Email string `yaml:"email" env:"EMAIL"`
}

// LedgerConfig selects the durable state backend
type LedgerConfig struct {
	Path string `yaml:"path" env:"LEDGER_PATH"`
	// DSN switches the ledger to Postgres when set
	DSN string `yaml:"dsn" env:"LEDGER_DSN"`
}

// LogConfig configures the logrus logger
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// ServerConfig configures serve mode
type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

// Default returns the configuration used before any file or environment is applied
func Default() *Config {
	return &Config{
		GitHub: *DefaultGitHubConfig(),
		Sync:   *DefaultSyncConfig(),
		Ledger: LedgerConfig{Path: "./processed_shas.json"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Server: ServerConfig{Port: "8080"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// An empty path falls back to CONFIG_FILE.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse environment", err)
	}

	cfg.Sync.ReposToExclude = trimAll(cfg.Sync.ReposToExclude)
	cfg.Sync.BranchFilter = trimAll(cfg.Sync.BranchFilter)
	return cfg, nil
}

// ParseEnv overlays environment variables onto target.
// Fields whose variable is unset keep their current value.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// Validate checks the keys required for a replay run
func (c *Config) Validate() error {
	var missing []string
	if c.SourceToken == "" {
		missing = append(missing, "SOURCE_GITHUB_TOKEN")
	}
	if c.DestToken == "" {
		missing = append(missing, "DEST_GITHUB_TOKEN")
	}
	if c.SyncRepoOwner == "" {
		missing = append(missing, "SYNC_REPO_OWNER")
	}
	if c.SyncRepoName == "" {
		missing = append(missing, "SYNC_REPO_NAME")
	}
	if c.Author.Name == "" {
		missing = append(missing, "AUTHOR_NAME")
	}
	if c.Author.Email == "" {
		missing = append(missing, "AUTHOR_EMAIL")
	}
	if len(missing) > 0 {
		return apperrors.NewConfigError("missing required configuration: "+strings.Join(missing, ", "), nil)
	}
	if _, _, err := utils.ParseRepoURL(c.DestinationSlug()); err != nil {
		return apperrors.NewConfigError("SYNC_REPO_OWNER and SYNC_REPO_NAME must form owner/name", err)
	}
	if c.Sync.LocalRepoPath == "" {
		return apperrors.NewConfigError("LOCAL_REPO_PATH cannot be empty", nil)
	}
	if c.Ledger.DSN == "" && c.Ledger.Path == "" {
		return apperrors.NewConfigError("one of LEDGER_PATH or LEDGER_DSN must be set", nil)
	}
	return nil
}

// DestinationSlug returns owner/name of the destination repository
func (c *Config) DestinationSlug() string {
	return c.SyncRepoOwner + "/" + c.SyncRepoName
}

// SyncInterval is the serve-mode interval between runs
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
