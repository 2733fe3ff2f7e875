// Package config loads and validates process-wide configuration for forksync.
//
// Tokens and API endpoints come from environment variables (optionally seeded
// from .env files); structural settings such as the superproject path and the
// daemon schedule can additionally be set in an optional YAML file. Environment
// values always win over file values so CI secrets never get shadowed.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GitHubConfig holds GitHub API access settings.
type GitHubConfig struct {
	Token  string `yaml:"-"`
	APIURL string `yaml:"api_url"`
}

// GitLabConfig holds GitLab API access settings.
type GitLabConfig struct {
	Token  string `yaml:"-"`
	APIURL string `yaml:"api_url"`
}

// ForumConfig holds the XenForo notification sink settings. Notification is
// optional; an incomplete config disables posting without failing the run.
type ForumConfig struct {
	APIKey   string `yaml:"-"`
	APIUser  string `yaml:"api_user"`
	BaseURL  string `yaml:"base_url"`
	ThreadID int    `yaml:"thread_id"`
}

// Config is the explicit configuration object passed into every component.
// There is no package-level singleton; construct once in main and hand down.
type Config struct {
	// SuperprojectPath is the root of the repository whose .gitmodules drives
	// the run. Required before any remote operation begins.
	SuperprojectPath string `yaml:"superproject_path"`

	// AutomationBranch is the rolling branch the publication manager pushes.
	AutomationBranch string `yaml:"automation_branch"`

	// DryRun performs every local step but skips push, PR, and notification.
	DryRun bool `yaml:"-"`

	GitHub GitHubConfig `yaml:"github"`
	GitLab GitLabConfig `yaml:"gitlab"`
	Forum  ForumConfig  `yaml:"forum"`

	// Schedule is a cron expression used only by the daemon command.
	Schedule string `yaml:"schedule"`

	// MetricsTextfile, when set, receives a prometheus textfile snapshot of
	// run counters after each run (node-exporter textfile collector format).
	MetricsTextfile string `yaml:"metrics_textfile"`

	// HistoryDB, when set, is a sqlite database recording run outcomes.
	HistoryDB string `yaml:"history_db"`
}

// Load builds the configuration: defaults, then the optional YAML file at
// path (ignored when absent), then environment variables on top.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, uerr)
			}
		case os.IsNotExist(err):
			// Optional file; env-only operation is the common CI case.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		SuperprojectPath: ".",
		AutomationBranch: "auto/submodule-updates",
		GitHub:           GitHubConfig{APIURL: "https://api.github.com"},
		GitLab:           GitLabConfig{APIURL: "https://gitlab.com/api/v4"},
		Forum: ForumConfig{
			APIUser:  "7384",
			BaseURL:  "https://www.redguides.com/community/api",
			ThreadID: 95078,
		},
		Schedule: "0 6 * * *",
	}
}

// Validate checks the parts of the config that must hold before any remote
// operation begins. Missing tokens are not errors; they degrade capability.
func (c *Config) Validate() error {
	if c.SuperprojectPath == "" {
		return fmt.Errorf("superproject path must not be empty")
	}
	if c.AutomationBranch == "" {
		return fmt.Errorf("automation branch must not be empty")
	}
	if c.GitHub.APIURL == "" || c.GitLab.APIURL == "" {
		return fmt.Errorf("provider API URLs must not be empty")
	}
	if c.Forum.ThreadID < 0 {
		return fmt.Errorf("forum thread id must not be negative")
	}
	return nil
}

// ForumEnabled reports whether the notification sink is fully configured.
func (c *Config) ForumEnabled() bool {
	return c.Forum.APIKey != "" && c.Forum.APIUser != "" && c.Forum.BaseURL != "" && c.Forum.ThreadID > 0
}
