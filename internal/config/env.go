package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv seeds the process environment from .env/.env.local when present.
// Existing environment variables are never overwritten. Call once at startup
// before Load.
func LoadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "file", name, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "file", name)
	}
}

// applyEnv overlays environment variables onto the config. Empty variables
// leave the existing value in place.
func applyEnv(cfg *Config) {
	setString(&cfg.GitHub.Token, "GH_API_TOKEN")
	setString(&cfg.GitHub.APIURL, "GH_API")
	setString(&cfg.GitLab.Token, "GITLAB_API_TOKEN")
	setString(&cfg.GitLab.APIURL, "GL_API")

	setString(&cfg.Forum.APIKey, "XF_DONOTREPLY_KEY")
	setString(&cfg.Forum.APIUser, "XF_API_USER")
	setString(&cfg.Forum.BaseURL, "XF_BASE_URL")
	if raw := strings.TrimSpace(os.Getenv("XF_THREAD_ID")); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			cfg.Forum.ThreadID = id
		} else {
			slog.Warn("Ignoring unparseable XF_THREAD_ID", "value", raw)
		}
	}

	setString(&cfg.SuperprojectPath, "FORKSYNC_SUPERPROJECT")
	setString(&cfg.AutomationBranch, "FORKSYNC_BRANCH")
	setString(&cfg.MetricsTextfile, "FORKSYNC_METRICS_TEXTFILE")
	setString(&cfg.HistoryDB, "FORKSYNC_HISTORY_DB")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
