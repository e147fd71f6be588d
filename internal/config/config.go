// Package config loads settings from flags, environment and an optional file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/naka-gawa/devops-wrapped/internal/cache"
	"github.com/naka-gawa/devops-wrapped/internal/domain"
	"github.com/naka-gawa/devops-wrapped/internal/usecase"
)

// EnvPrefix is prepended to every environment variable, e.g. WRAPPED_ORGANIZATION.
const EnvPrefix = "WRAPPED"

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config holds all configuration for the application.
type Config struct {
	Organization string   `mapstructure:"organization"`
	Projects     []string `mapstructure:"projects"`
	Repository   string   `mapstructure:"repository"`
	Year         int      `mapstructure:"year"`
	UserEmail    string   `mapstructure:"user_email"`

	Token         string `mapstructure:"token"`
	TokenSecretID string `mapstructure:"token_secret_id"`
	AWSRegion     string `mapstructure:"aws_region"`

	BaseURL             string        `mapstructure:"base_url"`
	IdentityBaseURL     string        `mapstructure:"identity_base_url"`
	HTTPTimeout         time.Duration `mapstructure:"http_timeout"`
	IncludeChangeCounts bool          `mapstructure:"include_change_counts"`
	EnrichConcurrency   int           `mapstructure:"enrich_concurrency"`
	TargetConcurrency   int           `mapstructure:"target_concurrency"`
	Timezone            string        `mapstructure:"timezone"`

	Branches   BranchesConfig   `mapstructure:"branches"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Server     ServerConfig     `mapstructure:"server"`

	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

type BranchesConfig struct {
	Commits      []string `mapstructure:"commits"`
	PullRequests []string `mapstructure:"pull_requests"`
}

type ThresholdsConfig struct {
	Weekend float64 `mapstructure:"weekend"`
	Night   float64 `mapstructure:"night"`
	Morning float64 `mapstructure:"morning"`
}

type CacheConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key with its default so that environment
// variables are picked up for all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("organization", "")
	v.SetDefault("projects", []string{})
	v.SetDefault("repository", "")
	v.SetDefault("year", time.Now().Year())
	v.SetDefault("user_email", "")
	v.SetDefault("token", "")
	v.SetDefault("token_secret_id", "")
	v.SetDefault("aws_region", "")
	v.SetDefault("base_url", "https://dev.azure.com")
	v.SetDefault("identity_base_url", "https://vssps.dev.azure.com")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("include_change_counts", true)
	v.SetDefault("enrich_concurrency", 8)
	v.SetDefault("target_concurrency", 0)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("branches.commits", usecase.DefaultCommitBranches)
	v.SetDefault("branches.pull_requests", usecase.DefaultPullRequestBranches)
	v.SetDefault("thresholds.weekend", usecase.DefaultThresholds.WeekendPercent)
	v.SetDefault("thresholds.night", usecase.DefaultThresholds.NightPercent)
	v.SetDefault("thresholds.morning", usecase.DefaultThresholds.MorningPercent)
	v.SetDefault("cache.driver", cache.DriverNone)
	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("cache.dsn", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("mode", ModeDevelopment)
	v.SetDefault("log_level", "info")
}

// Load reads the optional config file, the environment and any flags
// already bound to v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("token", EnvPrefix+"_TOKEN", "AZURE_DEVOPS_PAT"); err != nil {
		return nil, err
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Projects = splitList(cfg.Projects)
	cfg.Branches.Commits = splitList(cfg.Branches.Commits)
	cfg.Branches.PullRequests = splitList(cfg.Branches.PullRequests)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("invalid mode %q: want %s or %s", c.Mode, ModeDevelopment, ModeProduction)
	}
	switch c.Cache.Driver {
	case cache.DriverNone, cache.DriverMemory, cache.DriverFile, cache.DriverPostgres:
	default:
		return fmt.Errorf("invalid cache driver %q", c.Cache.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Scope builds the wrapped request described by the configuration.
func (c *Config) Scope() domain.Scope {
	return domain.Scope{
		Organization: c.Organization,
		Projects:     c.Projects,
		Repository:   c.Repository,
		Year:         c.Year,
		UserEmail:    c.UserEmail,
	}
}

// CollectConfig returns the orchestrator settings.
func (c *Config) CollectConfig() usecase.CollectConfig {
	return usecase.CollectConfig{
		CommitBranches:      c.Branches.Commits,
		PullRequestBranches: c.Branches.PullRequests,
		IncludeChangeCounts: c.IncludeChangeCounts,
		TargetConcurrency:   c.TargetConcurrency,
	}
}

// AggregateOptions returns the aggregation settings.
func (c *Config) AggregateOptions() usecase.Options {
	loc, err := c.Location()
	if err != nil {
		loc = time.UTC
	}
	return usecase.Options{
		Location: loc,
		Thresholds: usecase.Thresholds{
			WeekendPercent: c.Thresholds.Weekend,
			NightPercent:   c.Thresholds.Night,
			MorningPercent: c.Thresholds.Morning,
		},
	}
}

// CacheSettings returns the response cache settings.
func (c *Config) CacheSettings() cache.Config {
	return cache.Config{Driver: c.Cache.Driver, Dir: c.Cache.Dir, DSN: c.Cache.DSN}
}

// splitList accepts both list values and a single comma separated string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
