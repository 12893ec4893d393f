package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/compliance"
	"github.com/starford/ansuz/internal/normalizer"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/watch"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig  `yaml:"app"`
	Project normalizer.Project `yaml:"project"`
	Docs    DocsConfig         `yaml:"docs"`
	Check   compliance.Config  `yaml:"check"`
	History HistoryConfig      `yaml:"history"`
	Watch   WatchConfig        `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Project.Validate(); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if err := c.Docs.Validate(); err != nil {
		return fmt.Errorf("docs: %w", err)
	}
	if err := c.Check.Validate(); err != nil {
		return fmt.Errorf("check: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a JSON copy of every log record.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DocsConfig holds the document tree and the normalization policy.
type DocsConfig struct {
	Root           string                   `yaml:"root"`
	Mode           normalizer.Mode          `yaml:"mode"`
	DefaultVersion string                   `yaml:"default_version"`
	DryRun         bool                     `yaml:"dry_run"`
	Extensions     []string                 `yaml:"extensions"`
	Exclude        []string                 `yaml:"exclude"`
	Replacements   []normalizer.Replacement `yaml:"replacements"`
	Rules          []normalizer.Rule        `yaml:"rules"`
}

// Validate validates the docs configuration.
func (c *DocsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Mode, validation.Required, validation.In(normalizer.ModeRefresh, normalizer.ModeSkip)),
		validation.Field(&c.DefaultVersion, validation.Required),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Exclude, validation.Each(validation.By(validPattern))),
		validation.Field(&c.Replacements),
		validation.Field(&c.Rules),
	)
}

// Normalizer returns the normalization policy for project.
func (c *DocsConfig) Normalizer(p normalizer.Project) normalizer.Config {
	return normalizer.Config{
		Project:        p,
		Mode:           c.Mode,
		DefaultVersion: c.DefaultVersion,
		Rules:          c.Rules,
		Replacements:   c.Replacements,
		DryRun:         c.DryRun,
	}
}

func validPattern(v any) error {
	s, _ := v.(string)
	if !doublestar.ValidatePattern(s) {
		return errors.New("invalid glob pattern")
	}
	return nil
}

// HistoryConfig holds the run history database location. An empty path
// disables history.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether run history is recorded.
func (c *HistoryConfig) Enabled() bool { return c.Path != "" }

// WatchConfig holds the file watcher configuration used by serve.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Project: normalizer.Project{
			Name:   "YYC³ Email Platform",
			Banner: "YYC³ 项目文档",
			Author: "YYC³ <admin@0379.email>",
			URL:    "https://github.com/YY-Nexus/0379-email-platform",
		},
		Docs: DocsConfig{
			Root:           ".",
			Mode:           normalizer.ModeRefresh,
			DefaultVersion: normalizer.DefaultVersion,
			Extensions:     append([]string(nil), storage.DefaultExtensions...),
			Exclude:        append([]string(nil), storage.DefaultExclude...),
			Replacements: []normalizer.Replacement{
				{From: "0379邮件平台", To: "YYC³邮件平台"},
			},
			Rules: normalizer.DefaultRules(),
		},
		Check: compliance.DefaultConfig(),
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: watch.DefaultDebounce,
		},
	}
}
