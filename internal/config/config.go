// Package config loads the checker configuration.
//
// Non-secret settings (sources, file paths, schedule, retry policy) live in
// a YAML file. Secrets (Telegram, Twitter, git credentials) come exclusively
// from environment variables; a local .env file is loaded when present for
// development runs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pababhi7/device-checker/internal/source"
)

// Default file locations, relative to the repository the checker runs in.
const (
	DefaultStateFile = "known_devices.json"
	DefaultChangeLog = "changes_log.json"
	DefaultSchedule  = "0 */6 * * *"
)

// Duration wraps time.Duration with YAML support for values like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RetryConfig bounds the fetch retry loop.
type RetryConfig struct {
	MaxAttempts     int      `yaml:"max_attempts"`
	InitialInterval Duration `yaml:"initial_interval"`
	MaxInterval     Duration `yaml:"max_interval"`
}

// Policy converts the config into the fetcher's retry policy, applying
// defaults for zero values.
func (r RetryConfig) Policy() source.RetryPolicy {
	return source.RetryPolicy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: r.InitialInterval.Std(),
		MaxInterval:     r.MaxInterval.Std(),
	}
}

// CommitConfig controls committing the state files back to the repository.
// The push token is read from the GIT_TOKEN environment variable, never from
// the file.
type CommitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RepoPath    string `yaml:"repo_path"`
	Remote      string `yaml:"remote"`
	Push        bool   `yaml:"push"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	Message     string `yaml:"message"`
}

// Config is the full checker configuration.
type Config struct {
	StateFile   string   `yaml:"state_file"`
	ChangeLog   string   `yaml:"change_log"`
	Schedule    string   `yaml:"schedule"`
	Notifier    string   `yaml:"notifier"` // telegram, twitter, or dryrun
	MaxMessages int      `yaml:"max_messages"`
	LockTimeout Duration `yaml:"lock_timeout"`
	// NotifyFirstRun sends per-change messages even when no prior snapshot
	// exists. Off by default: the first run would flood the chat with every
	// device ever listed.
	NotifyFirstRun bool            `yaml:"notify_first_run"`
	Retry          RetryConfig     `yaml:"retry"`
	Commit         CommitConfig    `yaml:"commit"`
	Sources        []source.Source `yaml:"sources"`
}

// Load reads the YAML config at path and applies defaults. A .env file in
// the working directory is loaded first when present so local runs pick up
// credentials without exporting them.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StateFile == "" {
		c.StateFile = DefaultStateFile
	}
	if c.ChangeLog == "" {
		c.ChangeLog = DefaultChangeLog
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.Notifier == "" {
		c.Notifier = "telegram"
	}
	if c.Commit.RepoPath == "" {
		c.Commit.RepoPath = "."
	}
	if c.Commit.Remote == "" {
		c.Commit.Remote = "origin"
	}
	if c.Commit.AuthorName == "" {
		c.Commit.AuthorName = "device-checker"
	}
	if c.Commit.AuthorEmail == "" {
		c.Commit.AuthorEmail = "device-checker@users.noreply.github.com"
	}
	if c.Commit.Message == "" {
		c.Commit.Message = "Update device state"
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if err := src.Validate(); err != nil {
			return err
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
	}

	switch c.Notifier {
	case "telegram", "twitter", "dryrun":
	default:
		return fmt.Errorf("unknown notifier %q (must be telegram, twitter, or dryrun)", c.Notifier)
	}

	if c.MaxMessages < 0 {
		return fmt.Errorf("max_messages must not be negative")
	}
	return nil
}
